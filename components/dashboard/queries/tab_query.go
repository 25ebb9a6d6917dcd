package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// TabInput identifies a tab request for a viewer.
type TabInput struct {
	Viewer dashboard.ViewerContext
	Tab    string
}

type tabService interface {
	Tab(ctx context.Context, viewer dashboard.ViewerContext, tab string) (dashboard.TabView, error)
}

// TabQuery builds the view model for one dashboard tab.
type TabQuery struct {
	service tabService
}

// NewTabQuery builds the query.
func NewTabQuery(service tabService) *TabQuery {
	return &TabQuery{service: service}
}

var _ gocommand.Querier[TabInput, dashboard.TabView] = (*TabQuery)(nil)

// Query resolves the tab for the viewer.
func (q *TabQuery) Query(ctx context.Context, input TabInput) (dashboard.TabView, error) {
	return q.service.Tab(ctx, input.Viewer, input.Tab)
}
