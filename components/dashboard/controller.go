package dashboard

import (
	"context"
	"errors"
	"io"
)

const (
	dashboardTemplate = "dashboard"
	loginTemplate     = "login"
)

// Renderer is the template contract the controller needs; go-template satisfies it.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// TabResolver is the subset of Service the controller needs.
type TabResolver interface {
	Tab(ctx context.Context, viewer ViewerContext, tab string) (TabView, error)
}

// ControllerOptions wires a controller.
type ControllerOptions struct {
	Service  TabResolver
	Renderer Renderer
	// LiveEvents is the websocket path the page script connects to; empty disables it.
	LiveEvents    string
	BasePath      string
	Template      string
	LoginTemplate string
}

// Controller renders the login gate and dashboard pages.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = dashboardTemplate
	}
	if opts.LoginTemplate == "" {
		opts.LoginTemplate = loginTemplate
	}
	return &Controller{opts: opts}
}

// Payload returns the tab view without rendering it.
func (c *Controller) Payload(ctx context.Context, viewer ViewerContext, tab string) (TabView, error) {
	if c.opts.Service == nil {
		return TabView{}, errors.New("dashboard: controller has no service")
	}
	return c.opts.Service.Tab(ctx, viewer, tab)
}

// RenderPage writes the dashboard for authenticated viewers and the login form otherwise.
func (c *Controller) RenderPage(ctx context.Context, viewer ViewerContext, tab string, out io.Writer) error {
	if !viewer.Session().Authenticated() {
		return c.RenderLogin(LoginForm{}, out)
	}
	view, err := c.Payload(ctx, viewer, tab)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return c.RenderLogin(LoginForm{}, out)
		}
		return err
	}
	panels := make([]map[string]any, len(view.Panels))
	for i, panel := range view.Panels {
		panels[i] = panelData(panel)
	}
	return c.render(c.opts.Template, map[string]any{
		"view":        view,
		"tabs":        view.Tabs,
		"tiles":       view.Tiles,
		"panels":      panels,
		"profile":     view.Profile,
		"base_path":   c.opts.BasePath,
		"live_events": c.opts.LiveEvents,
	}, out)
}

// panelData flattens a panel for the template engine, which compares plain strings only.
func panelData(p Panel) map[string]any {
	return map[string]any{
		"Resource":     p.Resource,
		"Title":        p.Title,
		"Status":       string(p.Status),
		"Error":        p.Error,
		"Message":      p.Message,
		"IsRefetching": p.IsRefetching,
		"ChartHTML":    p.ChartHTML,
		"Users":        p.Users,
	}
}

// LoginForm carries what the login template re-displays after a rejection.
type LoginForm struct {
	Contact string
	Error   string
}

// RenderLogin writes the login form.
func (c *Controller) RenderLogin(form LoginForm, out io.Writer) error {
	return c.render(c.opts.LoginTemplate, map[string]any{
		"contact":   form.Contact,
		"error":     form.Error,
		"base_path": c.opts.BasePath,
	}, out)
}

func (c *Controller) render(name string, data map[string]any, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: controller has no renderer")
	}
	_, err := c.opts.Renderer.Render(name, data, out)
	return err
}
