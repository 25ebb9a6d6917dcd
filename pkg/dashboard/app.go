package dashboard

import (
	"context"
	"fmt"
	"net/http"

	router "github.com/goliatone/go-router"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	core "github.com/goliatone/go-userdash/components/dashboard"
	"github.com/goliatone/go-userdash/components/dashboard/commands"
	"github.com/goliatone/go-userdash/components/dashboard/gorouter"
	"github.com/goliatone/go-userdash/components/dashboard/httpapi"
	"github.com/goliatone/go-userdash/components/dashboard/queries"
	"github.com/goliatone/go-userdash/pkg/logging"
	"github.com/goliatone/go-userdash/pkg/usersapi"
)

// Option customizes App construction.
type Option func(*App)

// WithTelemetry adds a telemetry sink next to the structured log sink.
func WithTelemetry(t core.Telemetry) Option {
	return func(a *App) {
		if t != nil {
			a.sinks = append(a.sinks, t)
		}
	}
}

// WithUsersClient replaces the users client chosen from the config.
func WithUsersClient(client usersapi.UsersClient) Option {
	return func(a *App) {
		a.users = client
	}
}

// WithRenderer replaces the embedded template renderer.
func WithRenderer(renderer core.Renderer) Option {
	return func(a *App) {
		a.renderer = renderer
	}
}

// WithLogger sets the logger used for request and telemetry logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithBasePath mounts every route below prefix.
func WithBasePath(prefix string) Option {
	return func(a *App) {
		a.basePath = prefix
	}
}

// App is a fully wired user dashboard: coordinator, sessions, views and
// the commands both transports share.
type App struct {
	Config     Config
	Service    *core.Service
	Queries    *core.QueryClient
	Charts     *core.ChartCache
	Sessions   *core.SessionManager
	Broadcast  *core.BroadcastHook
	Controller *core.Controller
	Executor   *httpapi.CommandExecutor
	Handlers   *httpapi.Handlers
	State      *queries.QueryStateQuery
	Tabs       *queries.TabQuery

	logger   zerolog.Logger
	sinks    []core.Telemetry
	users    usersapi.UsersClient
	renderer core.Renderer
	basePath string
}

// New validates cfg and wires the application.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, logger: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.users == nil {
		users, err := usersClient(cfg)
		if err != nil {
			return nil, err
		}
		a.users = users
	}
	if a.renderer == nil {
		renderer, err := core.NewTemplateRenderer()
		if err != nil {
			return nil, fmt.Errorf("dashboard: templates: %w", err)
		}
		a.renderer = renderer
	}

	telemetry := append(core.MultiTelemetry{logging.NewTelemetry(&a.logger)}, a.sinks...)
	a.Broadcast = core.NewBroadcastHook()
	a.Queries = core.NewQueryClient(
		core.WithGCTime(cfg.GCTime),
		core.WithQueryHook(a.Broadcast),
		core.WithQueryTelemetry(telemetry),
	)

	sales := core.NewSalesGenerator()
	sales.Delay = cfg.MockDelays.Sales
	activity := core.NewActivityGenerator()
	activity.Delay = cfg.MockDelays.Activity

	a.Charts = core.NewChartCache(cfg.GCTime)
	a.Service = core.NewService(core.Options{
		Users:      usersapi.NewUsersRepository(a.users),
		Sales:      sales,
		Activity:   activity,
		Queries:    a.Queries,
		Charts:     core.NewChartRenderer(core.WithChartCache(a.Charts), core.WithChartTheme(cfg.ChartTheme)),
		StaleTimes: &cfg.StaleTimes,
		Telemetry:  telemetry,
	})
	a.Sessions = core.NewSessionManager(cfg.SessionIdleTimeout)
	a.Controller = core.NewController(core.ControllerOptions{
		Service:    a.Service,
		Renderer:   a.renderer,
		LiveEvents: a.basePath + "/ws",
		BasePath:   a.basePath,
	})

	a.Executor = &httpapi.CommandExecutor{
		LoginCommander:   commands.NewLoginCommand(a.Service, telemetry),
		LogoutCommander:  commands.NewLogoutCommand(a.Service, telemetry),
		RefetchCommander: commands.NewRefetchCommand(a.Service, telemetry),
		FocusCommander:   commands.NewFocusCommand(a.Service, telemetry),
	}
	a.State = queries.NewQueryStateQuery(a.Service)
	a.Tabs = queries.NewTabQuery(a.Service)
	a.Handlers = &httpapi.Handlers{
		Login:    a.Executor.LoginCommander,
		Logout:   a.Executor.LogoutCommander,
		Refetch:  a.Executor.RefetchCommander,
		Focus:    a.Executor.FocusCommander,
		Session:  queries.NewSessionQuery(),
		State:    a.State,
		Pages:    a.Controller,
		Events:   a.Broadcast,
		Watcher:  a.Service,
		BasePath: a.basePath,
	}
	return a, nil
}

func usersClient(cfg Config) (usersapi.UsersClient, error) {
	if cfg.Offline {
		return usersapi.NewMockClient(usersapi.DemoUsers()), nil
	}
	return usersapi.NewHTTPClient(usersapi.HTTPConfig{
		BaseURL: cfg.UsersBaseURL,
		Timeout: cfg.RequestTimeout,
	})
}

// HTTPHandler returns the gorilla/mux transport with request logging first.
func (a *App) HTTPHandler(middleware ...mux.MiddlewareFunc) http.Handler {
	chain := append([]mux.MiddlewareFunc{logging.Middleware(&a.logger)}, middleware...)
	return httpapi.NewRouter(a.Handlers, a.Sessions, chain...)
}

// RegisterRoutes mounts the go-router transport on r.
func RegisterRoutes[T any](a *App, r router.Router[T]) error {
	return gorouter.Register(gorouter.Config[T]{
		Router:     r,
		Controller: a.Controller,
		API:        a.Executor,
		State:      a.State,
		Broadcast:  a.Broadcast,
		Watcher:    a.Service,
		Sessions:   a.Sessions,
		BasePath:   a.basePath,
	})
}

// Start launches query eviction, chart purging and idle session cleanup
// until ctx is done.
func (a *App) Start(ctx context.Context) {
	a.Queries.StartGC(ctx, a.Config.GCInterval)
	a.Charts.StartPurge(ctx, a.Config.GCInterval)
	go a.Sessions.Run(ctx, a.Config.GCInterval)
	a.logger.Info().
		Dur("gc_time", a.Config.GCTime).
		Dur("gc_interval", a.Config.GCInterval).
		Bool("offline", a.Config.Offline).
		Msg("dashboard background loops started")
}

// Snapshot logs a throwaway viewer in and resolves one tab.
func (a *App) Snapshot(ctx context.Context, contact, secret, tab string) (core.TabView, error) {
	viewer := core.ViewerContext{ClientID: "snapshot", Store: core.NewSessionStore(nil)}
	if err := a.Executor.Login(ctx, commands.LoginInput{Viewer: viewer, Contact: contact, Secret: secret}); err != nil {
		return core.TabView{}, err
	}
	defer func() {
		_ = a.Executor.Logout(context.WithoutCancel(ctx), commands.LogoutInput{Viewer: viewer})
	}()
	return a.Tabs.Query(ctx, queries.TabInput{Viewer: viewer, Tab: tab})
}
