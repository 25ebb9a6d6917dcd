package commands

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

type stubService struct {
	loginCalls   int
	logoutCalls  int
	refetchCalls int
	focusCalls   int
	loginResult  dashboard.LoginResult
	refetchState dashboard.QueryState
	refetchErr   error
	focusCount   int
	focusErr     error
}

func (s *stubService) Login(context.Context, dashboard.ViewerContext, string, string) (dashboard.LoginResult, error) {
	s.loginCalls++
	return s.loginResult, nil
}

func (s *stubService) Logout(context.Context, dashboard.ViewerContext) error {
	s.logoutCalls++
	return nil
}

func (s *stubService) Refetch(context.Context, dashboard.ViewerContext, string) (dashboard.QueryState, error) {
	s.refetchCalls++
	return s.refetchState, s.refetchErr
}

func (s *stubService) FocusRegained(context.Context, dashboard.ViewerContext) (int, error) {
	s.focusCalls++
	return s.focusCount, s.focusErr
}

type stubTelemetry struct {
	calls  int
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.calls++
	s.events = append(s.events, event)
}

func TestLoginCommand(t *testing.T) {
	service := &stubService{loginResult: dashboard.LoginResult{Success: true}}
	telemetry := &stubTelemetry{}
	cmd := NewLoginCommand(service, telemetry)
	if err := cmd.Execute(context.Background(), LoginInput{Contact: "jane@example.com", Secret: "pw"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.loginCalls != 1 {
		t.Fatalf("expected login call")
	}
	if telemetry.calls != 1 {
		t.Fatalf("expected telemetry to record events")
	}
}

func TestLoginCommandRejected(t *testing.T) {
	service := &stubService{loginResult: dashboard.LoginResult{ErrorMessage: "Please enter both email and password"}}
	err := NewLoginCommand(service, nil).Execute(context.Background(), LoginInput{Contact: "jane@example.com"})
	var loginErr *dashboard.LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if loginErr.Message != "Please enter both email and password" {
		t.Fatalf("unexpected message %q", loginErr.Message)
	}
}

func TestLogoutCommand(t *testing.T) {
	service := &stubService{}
	if err := NewLogoutCommand(service, nil).Execute(context.Background(), LogoutInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.logoutCalls != 1 {
		t.Fatalf("expected logout call")
	}
}

func TestCommandsRequireService(t *testing.T) {
	if err := NewLoginCommand(nil, nil).Execute(context.Background(), LoginInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := NewRefetchCommand(nil, nil).Execute(context.Background(), RefetchInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestRefetchCommandReportsState(t *testing.T) {
	service := &stubService{
		refetchState: dashboard.QueryState{Status: dashboard.QueryStatusError, Error: "unexpected status 503"},
		refetchErr:   errors.New("unexpected status 503"),
	}
	var state dashboard.QueryState
	cmd := NewRefetchCommand(service, nil)
	if err := cmd.Execute(context.Background(), RefetchInput{Resource: dashboard.ResourceUsers, Result: &state}); err != nil {
		t.Fatalf("producer failure should settle into state, got %v", err)
	}
	if state.Status != dashboard.QueryStatusError {
		t.Fatalf("expected error state, got %s", state.Status)
	}
	if service.refetchCalls != 1 {
		t.Fatalf("expected refetch call")
	}
}

func TestRefetchCommandPropagatesGateErrors(t *testing.T) {
	service := &stubService{refetchErr: dashboard.ErrNotAuthenticated}
	err := NewRefetchCommand(service, nil).Execute(context.Background(), RefetchInput{Resource: dashboard.ResourceUsers})
	if !errors.Is(err, dashboard.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestFocusCommand(t *testing.T) {
	service := &stubService{focusCount: 2}
	telemetry := &stubTelemetry{}
	var refetched int
	if err := NewFocusCommand(service, telemetry).Execute(context.Background(), FocusInput{Refetched: &refetched}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if refetched != 2 {
		t.Fatalf("expected 2 refetched, got %d", refetched)
	}
	if len(telemetry.events) != 1 || telemetry.events[0] != "dashboard.command.focus" {
		t.Fatalf("unexpected telemetry %v", telemetry.events)
	}

	service.focusErr = dashboard.ErrNotAuthenticated
	if err := NewFocusCommand(service, nil).Execute(context.Background(), FocusInput{}); !errors.Is(err, dashboard.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
