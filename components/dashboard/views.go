package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"golang.org/x/sync/errgroup"
)

// Tab codes.
const (
	TabOverview = "overview"
	TabSales    = "sales"
	TabActivity = "activity"
	TabUsers    = "users"
)

// PanelStatus adds the empty display state to the query statuses.
type PanelStatus string

const (
	PanelLoading PanelStatus = "loading"
	PanelError   PanelStatus = "error"
	PanelReady   PanelStatus = "ready"
	PanelEmpty   PanelStatus = "empty"
)

// NoUsersMessage is shown when the directory returns zero users.
const NoUsersMessage = "No users found"

var tabOrder = []TabLink{
	{Code: TabOverview, Label: "Overview"},
	{Code: TabSales, Label: "Sales"},
	{Code: TabActivity, Label: "Activity"},
	{Code: TabUsers, Label: "Users"},
}

// TabLink is one entry of the tab bar.
type TabLink struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// StatTile is a single overview number.
type StatTile struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Panel is the rendered state of one resource.
type Panel struct {
	Resource     string         `json:"resource"`
	Title        string         `json:"title"`
	Status       PanelStatus    `json:"status"`
	Error        string         `json:"error,omitempty"`
	Message      string         `json:"message,omitempty"`
	IsRefetching bool           `json:"is_refetching"`
	UpdatedAt    time.Time      `json:"updated_at,omitzero"`
	ChartHTML    string         `json:"-"`
	Users        []UserRecord   `json:"users,omitempty"`
	Sales        *SalesSeries   `json:"sales,omitempty"`
	Activity     []ActivityCell `json:"activity,omitempty"`
}

// TabView is everything a page needs to render a tab.
type TabView struct {
	Tab     string     `json:"tab"`
	Tabs    []TabLink  `json:"tabs"`
	Profile *Profile   `json:"profile,omitempty"`
	Tiles   []StatTile `json:"tiles,omitempty"`
	Panels  []Panel    `json:"panels"`
}

// NormalizeTab maps user input ("Sales", " USERS ") to a tab code; unknown
// values resolve to the overview.
func NormalizeTab(tab string) string {
	code := strcase.ToKebab(strings.TrimSpace(tab))
	for _, link := range tabOrder {
		if link.Code == code {
			return code
		}
	}
	return TabOverview
}

// Tab builds the view for one tab.
func (s *Service) Tab(ctx context.Context, viewer ViewerContext, tab string) (TabView, error) {
	session := viewer.Session()
	if !session.Authenticated() {
		return TabView{}, ErrNotAuthenticated
	}
	code := NormalizeTab(tab)
	view := TabView{
		Tab:     code,
		Tabs:    tabLinks(code),
		Profile: session.Profile,
	}
	switch code {
	case TabSales:
		view.Panels = []Panel{s.salesPanel(ctx, viewer)}
	case TabActivity:
		view.Panels = []Panel{s.activityPanel(ctx, viewer)}
	case TabUsers:
		view.Panels = []Panel{s.usersPanel(ctx, viewer)}
	default:
		s.overview(ctx, viewer, &view)
	}
	s.recordTelemetry(ctx, "dashboard.tab.render", map[string]any{"tab": code})
	return view, nil
}

func tabLinks(active string) []TabLink {
	links := make([]TabLink, len(tabOrder))
	for i, link := range tabOrder {
		link.Active = link.Code == active
		links[i] = link
	}
	return links
}

// overview loads all resources concurrently; a failing resource only affects its own panel.
func (s *Service) overview(ctx context.Context, viewer ViewerContext, view *TabView) {
	var users, sales, activity Panel
	var g errgroup.Group
	g.Go(func() error { users = s.usersPanel(ctx, viewer); return nil })
	g.Go(func() error { sales = s.salesPanel(ctx, viewer); return nil })
	g.Go(func() error { activity = s.activityPanel(ctx, viewer); return nil })
	_ = g.Wait()

	view.Tiles = overviewTiles(users.Users, sales.Sales, activity.Activity)
	// charts are shown on their own tabs
	sales.ChartHTML = ""
	activity.ChartHTML = ""
	view.Panels = []Panel{users, sales, activity}
}

func (s *Service) usersPanel(ctx context.Context, viewer ViewerContext) Panel {
	state, err := s.Query(ctx, viewer, ResourceUsers)
	panel := basePanel(ResourceUsers, "Users", state, err)
	users, ok := state.Data.([]UserRecord)
	if !ok {
		return panel
	}
	panel.Users = users
	if len(users) == 0 && panel.Status == PanelReady {
		panel.Status = PanelEmpty
		panel.Message = NoUsersMessage
	}
	return panel
}

func (s *Service) salesPanel(ctx context.Context, viewer ViewerContext) Panel {
	state, err := s.Query(ctx, viewer, ResourceSales)
	panel := basePanel(ResourceSales, "Sales", state, err)
	series, ok := state.Data.(SalesSeries)
	if !ok {
		return panel
	}
	panel.Sales = &series
	html, err := s.charts.SalesChart(dataVersion(state), series)
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.chart.render_failed", map[string]any{"resource": ResourceSales, "error": err.Error()})
		return panel
	}
	panel.ChartHTML = html
	return panel
}

func (s *Service) activityPanel(ctx context.Context, viewer ViewerContext) Panel {
	state, err := s.Query(ctx, viewer, ResourceActivity)
	panel := basePanel(ResourceActivity, "Activity", state, err)
	cells, ok := state.Data.([]ActivityCell)
	if !ok {
		return panel
	}
	panel.Activity = cells
	html, err := s.charts.ActivityHeatmap(dataVersion(state), cells)
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.chart.render_failed", map[string]any{"resource": ResourceActivity, "error": err.Error()})
		return panel
	}
	panel.ChartHTML = html
	return panel
}

func basePanel(resource, title string, state QueryState, err error) Panel {
	panel := Panel{
		Resource:     resource,
		Title:        title,
		IsRefetching: state.IsRefetching,
		UpdatedAt:    state.UpdatedAt,
		Error:        state.Error,
	}
	switch {
	case state.Status == QueryStatusError:
		panel.Status = PanelError
	case err != nil:
		panel.Status = PanelError
		panel.Error = err.Error()
	case state.Status == QueryStatusSuccess:
		panel.Status = PanelReady
	default:
		panel.Status = PanelLoading
	}
	return panel
}

func overviewTiles(users []UserRecord, sales *SalesSeries, cells []ActivityCell) []StatTile {
	tiles := []StatTile{newTile("Total Users", "n/a")}
	if users != nil {
		tiles[0].Value = strconv.Itoa(len(users))
	}

	revenue, expenses, net := "n/a", "n/a", "n/a"
	if sales != nil {
		r, e := sum(sales.Revenue), sum(sales.Expenses)
		revenue, expenses, net = formatCurrency(r), formatCurrency(e), formatCurrency(r-e)
	}
	tiles = append(tiles,
		newTile("Total Revenue", revenue),
		newTile("Total Expenses", expenses),
		newTile("Net Income", net),
	)

	average, busiest := "n/a", "n/a"
	if len(cells) > 0 {
		perDay := make([]int, len(DayNames))
		total := 0
		for _, cell := range cells {
			total += cell.Value
			if cell.Day >= 0 && cell.Day < len(perDay) {
				perDay[cell.Day] += cell.Value
			}
		}
		average = strconv.FormatFloat(float64(total)/float64(len(cells)), 'f', 1, 64)
		best := 0
		for day := range perDay {
			if perDay[day] > perDay[best] {
				best = day
			}
		}
		busiest = DayNames[best]
	}
	return append(tiles,
		newTile("Average Activity", average),
		newTile("Busiest Day", busiest),
	)
}

func newTile(label, value string) StatTile {
	return StatTile{Key: strcase.ToSnake(label), Label: label, Value: value}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// formatCurrency renders whole dollars with thousands separators.
func formatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(int64(v+0.5), 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s", sign, b.String())
}
