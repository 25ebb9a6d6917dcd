package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// SessionQuery returns the viewer's session snapshot.
type SessionQuery struct{}

// NewSessionQuery builds the query.
func NewSessionQuery() *SessionQuery {
	return &SessionQuery{}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Session] = (*SessionQuery)(nil)

// Query never fails; anonymous viewers get an empty session.
func (q *SessionQuery) Query(_ context.Context, viewer dashboard.ViewerContext) (dashboard.Session, error) {
	return viewer.Session(), nil
}

// ResourceInput names a resource for a viewer.
type ResourceInput struct {
	Viewer   dashboard.ViewerContext
	Resource string
	// Fetch runs the coordinator instead of only peeking at the cache.
	Fetch bool
}

type stateService interface {
	Query(ctx context.Context, viewer dashboard.ViewerContext, resource string) (dashboard.QueryState, error)
	QueryState(viewer dashboard.ViewerContext, resource string) (dashboard.QueryState, error)
}

// QueryStateQuery exposes coordinator state for one resource.
type QueryStateQuery struct {
	service stateService
}

// NewQueryStateQuery builds the query.
func NewQueryStateQuery(service stateService) *QueryStateQuery {
	return &QueryStateQuery{service: service}
}

var _ gocommand.Querier[ResourceInput, dashboard.QueryState] = (*QueryStateQuery)(nil)

// Query returns the resource state. With Fetch set, producer failures are
// reported in the state rather than as an error.
func (q *QueryStateQuery) Query(ctx context.Context, input ResourceInput) (dashboard.QueryState, error) {
	if !input.Fetch {
		return q.service.QueryState(input.Viewer, input.Resource)
	}
	state, err := q.service.Query(ctx, input.Viewer, input.Resource)
	if err != nil && state.Status == dashboard.QueryStatusError {
		return state, nil
	}
	return state, err
}
