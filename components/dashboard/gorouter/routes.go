package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"

	gocommand "github.com/goliatone/go-command"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-userdash/components/dashboard"
	"github.com/goliatone/go-userdash/components/dashboard/commands"
	"github.com/goliatone/go-userdash/components/dashboard/httpapi"
	"github.com/goliatone/go-userdash/components/dashboard/queries"
	"github.com/goliatone/go-userdash/pkg/logging"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the dashboard controller, commands and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	API            httpapi.Executor
	State          gocommand.Querier[queries.ResourceInput, dashboard.QueryState]
	Broadcast      *dashboard.BroadcastHook
	Watcher        httpapi.Watcher
	Sessions       *dashboard.SessionManager
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML      string
	Login     string
	Logout    string
	Retry     string
	Session   string
	Query     string
	Refetch   string
	Focus     string
	WebSocket string
}

// Register mounts the dashboard routes (HTML, JSON, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		if cfg.Sessions == nil {
			return errors.New("gorouter: sessions or a viewer resolver is required")
		}
		resolver = CookieViewerResolver(cfg.Sessions)
	}
	routes := defaultRouteConfig(cfg.Routes)
	group := cfg.Router.Group(cfg.BasePath)
	home := cfg.BasePath + routes.HTML

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderPage(ctx.Context(), resolver(ctx), ctx.Query("tab"), &buf); err != nil {
			return respondError(ctx, err)
		}
		return sendHTML(ctx, buf.Bytes())
	}))

	group.Get(routes.Session, router.WrapHandler(func(ctx router.Context) error {
		session := resolver(ctx).Session()
		return ctx.JSON(http.StatusOK, map[string]any{
			"authenticated": session.Authenticated(),
			"profile":       session.Profile,
		})
	}))

	if cfg.API != nil {
		registerForms(group, cfg.Controller, cfg.API, resolver, routes, home)
		registerAPI(group, cfg.API, resolver, routes)
	}
	if cfg.State != nil {
		group.Get(routes.Query, router.WrapHandler(func(ctx router.Context) error {
			state, err := cfg.State.Query(ctx.Context(), queries.ResourceInput{
				Viewer:   resolver(ctx),
				Resource: ctx.Param("resource"),
				Fetch:    ctx.Query("peek") != "true",
			})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, state)
		}))
	}
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, cfg.Watcher, cfg.API, resolver, routes.WebSocket)
	}
	return nil
}

func registerForms[T any](r router.Router[T], controller *dashboard.Controller, api httpapi.Executor, resolver ViewerResolver, routes RouteConfig, home string) {
	r.Post(routes.Login, router.WrapHandler(func(ctx router.Context) error {
		form, err := parseForm(ctx)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		input := commands.LoginInput{Viewer: resolver(ctx), Contact: form.Get("contact"), Secret: form.Get("secret")}
		err = api.Login(ctx.Context(), input)
		var loginErr *dashboard.LoginError
		switch {
		case err == nil:
			return redirect(ctx, home)
		case errors.As(err, &loginErr):
			var buf bytes.Buffer
			if err := controller.RenderLogin(dashboard.LoginForm{Contact: input.Contact, Error: loginErr.Message}, &buf); err != nil {
				return respondError(ctx, err)
			}
			return sendHTML(ctx, buf.Bytes())
		default:
			return respondError(ctx, err)
		}
	}))

	r.Post(routes.Logout, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Logout(ctx.Context(), commands.LogoutInput{Viewer: resolver(ctx)}); err != nil {
			return respondError(ctx, err)
		}
		return redirect(ctx, home)
	}))

	r.Post(routes.Retry, router.WrapHandler(func(ctx router.Context) error {
		form, err := parseForm(ctx)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		err = api.Refetch(ctx.Context(), commands.RefetchInput{Viewer: resolver(ctx), Resource: form.Get("resource")})
		if err != nil && !errors.Is(err, dashboard.ErrNotAuthenticated) {
			return respondError(ctx, err)
		}
		target := home
		if tab := form.Get("tab"); tab != "" && err == nil {
			target += "?tab=" + url.QueryEscape(tab)
		}
		return redirect(ctx, target)
	}))
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Post(routes.Refetch, router.WrapHandler(func(ctx router.Context) error {
		var state dashboard.QueryState
		input := commands.RefetchInput{Viewer: resolver(ctx), Resource: ctx.Param("resource"), Result: &state}
		if err := api.Refetch(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, state)
	}))

	r.Post(routes.Focus, router.WrapHandler(func(ctx router.Context) error {
		var refetched int
		if err := api.Focus(ctx.Context(), commands.FocusInput{Viewer: resolver(ctx), Refetched: &refetched}); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]int{"refetched": refetched})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, watcher httpapi.Watcher, api httpapi.Executor, resolver ViewerResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		viewer := resolver(ws)
		if !viewer.Session().Authenticated() {
			return ws.Close()
		}
		if watcher != nil {
			release, err := watcher.Watch(viewer)
			if err != nil {
				return ws.Close()
			}
			defer release()
		}
		events, cancel := hook.Subscribe(viewer.Store.Token())
		defer cancel()
		defer ws.Close()

		// The fiber context is never cancelled, so a failed read is the only
		// sign that the client went away.
		ctx := ws.Context()
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				_, raw, err := ws.ReadMessage()
				if err != nil {
					return
				}
				if api == nil {
					continue
				}
				if err := httpapi.DispatchLiveMessage(ctx, api, viewer, raw); err != nil {
					logging.FromContext(ctx).Warn().Err(err).Msg("live message failed")
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-gone:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// CookieViewerResolver identifies browsers by the client cookie, issuing one
// when it is missing.
func CookieViewerResolver(sessions *dashboard.SessionManager) ViewerResolver {
	return func(ctx router.Context) dashboard.ViewerContext {
		current := clientCookie(ctx.Header("Cookie"))
		clientID, store := sessions.Ensure(current)
		if clientID != current {
			cookie := &http.Cookie{
				Name:     httpapi.ClientCookie,
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			ctx.SetHeader("Set-Cookie", cookie.String())
		}
		return dashboard.ViewerContext{ClientID: clientID, Store: store}
	}
}

func clientCookie(header string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == httpapi.ClientCookie {
			return c.Value
		}
	}
	return ""
}

func parseForm(ctx router.Context) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(ctx.Header("Content-Type"))
	if mediaType == "application/json" {
		var payload map[string]string
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return nil, err
		}
		values := url.Values{}
		for k, v := range payload {
			values.Set(k, v)
		}
		return values, nil
	}
	return url.ParseQuery(string(ctx.Body()))
}

func redirect(ctx router.Context, target string) error {
	ctx.SetHeader("Location", target)
	return ctx.JSON(http.StatusSeeOther, map[string]string{"location": target})
}

func sendHTML(ctx router.Context, body []byte) error {
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(body)
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/"
	}
	if routes.Login == "" {
		routes.Login = "/login"
	}
	if routes.Logout == "" {
		routes.Logout = "/logout"
	}
	if routes.Retry == "" {
		routes.Retry = "/refetch"
	}
	if routes.Session == "" {
		routes.Session = "/api/session"
	}
	if routes.Query == "" {
		routes.Query = "/api/queries/:resource"
	}
	if routes.Refetch == "" {
		routes.Refetch = "/api/queries/:resource/refetch"
	}
	if routes.Focus == "" {
		routes.Focus = "/api/focus"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
