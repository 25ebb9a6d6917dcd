package dashboard

import (
	"context"
	"time"
)

// UsersRepository fetches user records from the upstream directory.
// Implementations attach the session token as a bearer credential.
type UsersRepository interface {
	FetchUsers(ctx context.Context, token string) ([]UserRecord, error)
}

// SalesRepository produces the sales series shown on the sales tab.
type SalesRepository interface {
	Generate(ctx context.Context) (SalesSeries, error)
}

// ActivityRepository produces the weekly activity grid.
type ActivityRepository interface {
	Generate(ctx context.Context) ([]ActivityCell, error)
}

// QueryHook notifies transports (WebSocket/SSE) about query state transitions.
type QueryHook interface {
	QueryUpdated(ctx context.Context, event QueryEvent) error
}

// Profile is the display identity attached to an authenticated session.
type Profile struct {
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
}

// Session is a point-in-time copy of a SessionStore.
type Session struct {
	Token   string   `json:"-"`
	Profile *Profile `json:"profile,omitempty"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Profile != nil
}

// LoginResult is the outcome of a login attempt. Failures are user correctable.
type LoginResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Company is the optional employer block on a user record.
type Company struct {
	Name string `json:"name"`
}

// UserRecord mirrors the upstream user shape. Extra upstream fields are ignored.
type UserRecord struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Company *Company `json:"company,omitempty"`
}

// CompanyName returns the company name or an empty string.
func (u UserRecord) CompanyName() string {
	if u.Company == nil {
		return ""
	}
	return u.Company.Name
}

// SalesSeries pairs month labels with revenue and expense values.
type SalesSeries struct {
	Labels   []string  `json:"labels"`
	Revenue  []float64 `json:"revenue"`
	Expenses []float64 `json:"expenses"`
}

// ActivityCell is one day in the activity heatmap.
type ActivityCell struct {
	Week    int    `json:"week"`
	Day     int    `json:"day"`
	DayName string `json:"day_name"`
	Value   int    `json:"value"`
}

// ViewerContext captures the browser client and its session store.
type ViewerContext struct {
	ClientID string
	Store    *SessionStore
}

// Session returns a snapshot of the viewer's session, empty when no store is attached.
func (v ViewerContext) Session() Session {
	if v.Store == nil {
		return Session{}
	}
	return v.Store.Snapshot()
}

// QueryEvent describes a query state transition that transports might care about.
type QueryEvent struct {
	Resource     string      `json:"resource"`
	Status       QueryStatus `json:"status"`
	IsRefetching bool        `json:"is_refetching"`
	UpdatedAt    time.Time   `json:"updated_at,omitzero"`
	Error        string      `json:"error,omitempty"`
	Scope        string      `json:"-"`
}
