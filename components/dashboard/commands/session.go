package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// LoginInput carries the credentials typed into the login form.
type LoginInput struct {
	Viewer  dashboard.ViewerContext
	Contact string
	Secret  string
}

type sessionService interface {
	Login(ctx context.Context, viewer dashboard.ViewerContext, contact, secret string) (dashboard.LoginResult, error)
	Logout(ctx context.Context, viewer dashboard.ViewerContext) error
}

// LoginCommand opens a session for the viewer.
type LoginCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(service sessionService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute logs the viewer in. A rejected attempt returns *dashboard.LoginError.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.service == nil {
		return errors.New("login command requires service")
	}
	result, err := c.service.Login(ctx, msg.Viewer, msg.Contact, msg.Secret)
	if err != nil {
		return err
	}
	if !result.Success {
		return &dashboard.LoginError{Message: result.ErrorMessage}
	}
	c.telemetry.Record(ctx, "dashboard.command.login", map[string]any{"client_id": msg.Viewer.ClientID})
	return nil
}

// LogoutInput identifies the viewer to log out.
type LogoutInput struct {
	Viewer dashboard.ViewerContext
}

// LogoutCommand clears the viewer's session.
type LogoutCommand struct {
	service   sessionService
	telemetry Telemetry
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(service sessionService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute logs the viewer out. Logging out twice is not an error.
func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutInput) error {
	if c.service == nil {
		return errors.New("logout command requires service")
	}
	if err := c.service.Logout(ctx, msg.Viewer); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.logout", map[string]any{"client_id": msg.Viewer.ClientID})
	return nil
}
