package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-userdash/components/dashboard/commands"
)

// Executor is the command surface shared by transports that do not speak net/http.
type Executor interface {
	Login(ctx context.Context, input commands.LoginInput) error
	Logout(ctx context.Context, input commands.LogoutInput) error
	Refetch(ctx context.Context, input commands.RefetchInput) error
	Focus(ctx context.Context, input commands.FocusInput) error
}

// CommandExecutor adapts go-command commanders to Executor.
type CommandExecutor struct {
	LoginCommander   gocommand.Commander[commands.LoginInput]
	LogoutCommander  gocommand.Commander[commands.LogoutInput]
	RefetchCommander gocommand.Commander[commands.RefetchInput]
	FocusCommander   gocommand.Commander[commands.FocusInput]
}

var errCommandNotConfigured = errors.New("httpapi: command not configured")

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) Login(ctx context.Context, input commands.LoginInput) error {
	if e.LoginCommander == nil {
		return errCommandNotConfigured
	}
	return e.LoginCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Logout(ctx context.Context, input commands.LogoutInput) error {
	if e.LogoutCommander == nil {
		return errCommandNotConfigured
	}
	return e.LogoutCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Refetch(ctx context.Context, input commands.RefetchInput) error {
	if e.RefetchCommander == nil {
		return errCommandNotConfigured
	}
	return e.RefetchCommander.Execute(ctx, input)
}

func (e *CommandExecutor) Focus(ctx context.Context, input commands.FocusInput) error {
	if e.FocusCommander == nil {
		return errCommandNotConfigured
	}
	return e.FocusCommander.Execute(ctx, input)
}
