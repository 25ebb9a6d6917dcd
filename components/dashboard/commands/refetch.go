package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

type refetchService interface {
	Refetch(ctx context.Context, viewer dashboard.ViewerContext, resource string) (dashboard.QueryState, error)
	FocusRegained(ctx context.Context, viewer dashboard.ViewerContext) (int, error)
}

// RefetchInput asks for a fresh run of one resource. Result, when set,
// receives the settled state.
type RefetchInput struct {
	Viewer   dashboard.ViewerContext
	Resource string
	Result   *dashboard.QueryState
}

// RefetchCommand backs the per-panel retry and refresh actions.
type RefetchCommand struct {
	service   refetchService
	telemetry Telemetry
}

// NewRefetchCommand creates the command.
func NewRefetchCommand(service refetchService, telemetry Telemetry) *RefetchCommand {
	return &RefetchCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefetchInput] = (*RefetchCommand)(nil)

// Execute refetches the resource. A producer failure is reported through the
// returned state, not as a command error.
func (c *RefetchCommand) Execute(ctx context.Context, msg RefetchInput) error {
	if c.service == nil {
		return errors.New("refetch command requires service")
	}
	state, err := c.service.Refetch(ctx, msg.Viewer, msg.Resource)
	if msg.Result != nil {
		*msg.Result = state
	}
	if err != nil && state.Status != dashboard.QueryStatusError {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.refetch", map[string]any{
		"resource": msg.Resource,
		"status":   string(state.Status),
	})
	return nil
}

// FocusInput reports that the viewer's window regained focus.
type FocusInput struct {
	Viewer    dashboard.ViewerContext
	Refetched *int
}

// FocusCommand revalidates the viewer's stale entries.
type FocusCommand struct {
	service   refetchService
	telemetry Telemetry
}

// NewFocusCommand creates the command.
func NewFocusCommand(service refetchService, telemetry Telemetry) *FocusCommand {
	return &FocusCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[FocusInput] = (*FocusCommand)(nil)

// Execute runs the focus revalidation and waits for it.
func (c *FocusCommand) Execute(ctx context.Context, msg FocusInput) error {
	if c.service == nil {
		return errors.New("focus command requires service")
	}
	count, err := c.service.FocusRegained(ctx, msg.Viewer)
	if msg.Refetched != nil {
		*msg.Refetched = count
	}
	if errors.Is(err, dashboard.ErrNotAuthenticated) {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.focus", map[string]any{"refetched": count})
	return nil
}
