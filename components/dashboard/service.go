package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Options configures the dashboard Service. Every collaborator is an interface
// or a ready-made component so tests and transports can swap implementations.
type Options struct {
	Users      UsersRepository
	Sales      SalesRepository
	Activity   ActivityRepository
	Queries    *QueryClient
	Charts     *ChartRenderer
	// StaleTimes nil means DefaultStaleTimes. Zero values are kept and mark
	// every read as stale.
	StaleTimes *StaleTimes
	Telemetry  Telemetry
}

// Service gates every data read behind the session and routes it through the
// query coordinator.
type Service struct {
	opts     Options
	registry *Registry
	queries  *QueryClient
	charts   *ChartRenderer
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.Sales == nil {
		opts.Sales = NewSalesGenerator()
	}
	if opts.Activity == nil {
		opts.Activity = NewActivityGenerator()
	}
	if opts.StaleTimes == nil {
		defaults := DefaultStaleTimes()
		opts.StaleTimes = &defaults
	}
	if opts.Queries == nil {
		opts.Queries = NewQueryClient(WithQueryTelemetry(opts.Telemetry))
	}
	if opts.Charts == nil {
		opts.Charts = NewChartRenderer(WithChartCache(NewChartCache(DefaultGCTime)))
	}
	s := &Service{
		opts:     opts,
		registry: NewRegistry(),
		queries:  opts.Queries,
		charts:   opts.Charts,
	}
	s.registerDefaults()
	return s
}

func (s *Service) registerDefaults() {
	_ = s.registry.Register(Resource{
		Code:      ResourceUsers,
		StaleTime: s.opts.StaleTimes.Users,
		Fetch: func(ctx context.Context, session Session) (any, error) {
			if s.opts.Users == nil {
				return nil, errMissingUsersRepository
			}
			users, err := s.opts.Users.FetchUsers(ctx, session.Token)
			if err != nil {
				return nil, err
			}
			if users == nil {
				users = []UserRecord{}
			}
			return users, nil
		},
	})
	_ = s.registry.Register(Resource{
		Code:      ResourceSales,
		StaleTime: s.opts.StaleTimes.Sales,
		Fetch: func(ctx context.Context, _ Session) (any, error) {
			return s.opts.Sales.Generate(ctx)
		},
	})
	_ = s.registry.Register(Resource{
		Code:      ResourceActivity,
		StaleTime: s.opts.StaleTimes.Activity,
		Fetch: func(ctx context.Context, _ Session) (any, error) {
			return s.opts.Activity.Generate(ctx)
		},
	})
}

// Registry exposes the resource registry so applications can add resources.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Queries exposes the coordinator, mainly for GC wiring.
func (s *Service) Queries() *QueryClient {
	return s.queries
}

// Login authenticates the viewer's store. A different previous token has its
// cache entries dropped since no later key can address them.
func (s *Service) Login(ctx context.Context, viewer ViewerContext, contact, secret string) (LoginResult, error) {
	if viewer.Store == nil {
		return LoginResult{}, ErrNoSessionProvider
	}
	previous := viewer.Store.Token()
	result := viewer.Store.Login(contact, secret)
	if !result.Success {
		s.recordTelemetry(ctx, "dashboard.session.login_rejected", map[string]any{"client_id": viewer.ClientID})
		return result, nil
	}
	if previous != "" && previous != viewer.Store.Token() {
		s.dropScope(previous)
	}
	s.recordTelemetry(ctx, "dashboard.session.login", map[string]any{"client_id": viewer.ClientID})
	return result, nil
}

// Logout clears the viewer's session and its cache entries.
func (s *Service) Logout(ctx context.Context, viewer ViewerContext) error {
	if viewer.Store == nil {
		return ErrNoSessionProvider
	}
	previous := viewer.Store.Token()
	viewer.Store.Logout()
	removed := 0
	if previous != "" {
		removed = s.dropScope(previous)
	}
	s.recordTelemetry(ctx, "dashboard.session.logout", map[string]any{
		"client_id": viewer.ClientID,
		"removed":   removed,
	})
	return nil
}

func (s *Service) dropScope(token string) int {
	return s.queries.RemoveQueries(func(key QueryKey) bool {
		return key.Scope() == token
	})
}

// Query reads a resource for the viewer through the coordinator.
func (s *Service) Query(ctx context.Context, viewer ViewerContext, resource string) (QueryState, error) {
	session, res, err := s.resolve(viewer, resource)
	if err != nil {
		return QueryState{}, err
	}
	return s.queries.Fetch(ctx, NewQueryKey(res.Code, session.Token), bindResource(res, session), QueryOptions{
		StaleTime: res.StaleTime,
	})
}

// Refetch re-invokes the resource producer and waits for the result.
// Keys that were never fetched (or were evicted) fall back to Query.
func (s *Service) Refetch(ctx context.Context, viewer ViewerContext, resource string) (QueryState, error) {
	session, res, err := s.resolve(viewer, resource)
	if err != nil {
		return QueryState{}, err
	}
	s.recordTelemetry(ctx, "dashboard.query.refetch", map[string]any{"resource": res.Code})
	state, err := s.queries.Refetch(ctx, NewQueryKey(res.Code, session.Token))
	if errors.Is(err, ErrQueryNotFound) {
		return s.Query(ctx, viewer, resource)
	}
	return state, err
}

// FocusRegained refetches the viewer's stale entries and reports how many ran.
func (s *Service) FocusRegained(ctx context.Context, viewer ViewerContext) (int, error) {
	session := viewer.Session()
	if !session.Authenticated() {
		return 0, ErrNotAuthenticated
	}
	count, err := s.queries.RefetchStale(ctx, func(key QueryKey) bool {
		return key.Scope() == session.Token
	})
	s.recordTelemetry(ctx, "dashboard.focus", map[string]any{"refetched": count})
	return count, err
}

// QueryState returns the cached state for a resource without fetching.
func (s *Service) QueryState(viewer ViewerContext, resource string) (QueryState, error) {
	session, res, err := s.resolve(viewer, resource)
	if err != nil {
		return QueryState{}, err
	}
	state, _ := s.queries.State(NewQueryKey(res.Code, session.Token))
	return state, nil
}

// Watch marks the viewer's entries as observed until the returned func runs.
// Live event connections hold a watch so their entries survive GC.
func (s *Service) Watch(viewer ViewerContext) (func(), error) {
	session := viewer.Session()
	if !session.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var observers []*QueryObserver
	for _, code := range s.registry.Codes() {
		res, _ := s.registry.Resource(code)
		observers = append(observers, s.queries.Observe(
			NewQueryKey(res.Code, session.Token),
			bindResource(res, session),
			QueryOptions{StaleTime: res.StaleTime},
		))
	}
	return func() {
		for _, o := range observers {
			o.Close()
		}
	}, nil
}

func (s *Service) resolve(viewer ViewerContext, resource string) (Session, Resource, error) {
	session := viewer.Session()
	if !session.Authenticated() {
		return Session{}, Resource{}, ErrNotAuthenticated
	}
	res, ok := s.registry.Resource(resource)
	if !ok {
		return Session{}, Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return session, res, nil
}

func bindResource(res Resource, session Session) QueryFunc {
	return func(ctx context.Context) (any, error) {
		return res.Fetch(ctx, session)
	}
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func dataVersion(state QueryState) string {
	return state.Key.String() + "@" + state.UpdatedAt.Format(time.RFC3339Nano)
}
