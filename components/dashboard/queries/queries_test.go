package queries

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

type stubTabService struct {
	calls   int
	lastTab string
}

func (s *stubTabService) Tab(_ context.Context, _ dashboard.ViewerContext, tab string) (dashboard.TabView, error) {
	s.calls++
	s.lastTab = tab
	return dashboard.TabView{Tab: dashboard.NormalizeTab(tab)}, nil
}

type stubStateService struct {
	queryCalls int
	peekCalls  int
	state      dashboard.QueryState
	err        error
}

func (s *stubStateService) Query(context.Context, dashboard.ViewerContext, string) (dashboard.QueryState, error) {
	s.queryCalls++
	return s.state, s.err
}

func (s *stubStateService) QueryState(dashboard.ViewerContext, string) (dashboard.QueryState, error) {
	s.peekCalls++
	return s.state, nil
}

func TestTabQuery(t *testing.T) {
	service := &stubTabService{}
	view, err := NewTabQuery(service).Query(context.Background(), TabInput{Tab: "sales"})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.calls != 1 || service.lastTab != "sales" {
		t.Fatalf("expected 1 call for sales, got %d for %q", service.calls, service.lastTab)
	}
	if view.Tab != dashboard.TabSales {
		t.Fatalf("expected sales tab, got %s", view.Tab)
	}
}

func TestSessionQuery(t *testing.T) {
	store := dashboard.NewSessionStore(nil)
	session, err := NewSessionQuery().Query(context.Background(), dashboard.ViewerContext{Store: store})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if session.Authenticated() {
		t.Fatalf("expected anonymous session")
	}

	store.Login("jane@example.com", "pw")
	session, _ = NewSessionQuery().Query(context.Background(), dashboard.ViewerContext{Store: store})
	if !session.Authenticated() || session.Profile.DisplayName != "jane" {
		t.Fatalf("unexpected session %#v", session)
	}
}

func TestQueryStatePeeksByDefault(t *testing.T) {
	service := &stubStateService{}
	if _, err := NewQueryStateQuery(service).Query(context.Background(), ResourceInput{Resource: dashboard.ResourceUsers}); err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.peekCalls != 1 || service.queryCalls != 0 {
		t.Fatalf("expected a cache peek only, got peek=%d query=%d", service.peekCalls, service.queryCalls)
	}
}

func TestQueryStateFetchFoldsProducerErrors(t *testing.T) {
	service := &stubStateService{
		state: dashboard.QueryState{Status: dashboard.QueryStatusError, Error: "boom"},
		err:   errors.New("boom"),
	}
	state, err := NewQueryStateQuery(service).Query(context.Background(), ResourceInput{Resource: dashboard.ResourceUsers, Fetch: true})
	if err != nil {
		t.Fatalf("expected producer error folded into state, got %v", err)
	}
	if state.Error != "boom" {
		t.Fatalf("unexpected state %#v", state)
	}

	service.state = dashboard.QueryState{}
	service.err = dashboard.ErrUnknownResource
	if _, err := NewQueryStateQuery(service).Query(context.Background(), ResourceInput{Resource: "invoices", Fetch: true}); !errors.Is(err, dashboard.ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}
