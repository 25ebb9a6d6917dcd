package dashboard

import "errors"

var (
	// ErrNotAuthenticated is returned when a query is requested without a session token.
	ErrNotAuthenticated = errors.New("dashboard: session is not authenticated")

	// ErrNoSessionProvider signals that a session accessor ran without a store in context.
	// It is a wiring defect and MustSession panics with it.
	ErrNoSessionProvider = errors.New("dashboard: session accessor used outside of a session provider")

	// ErrUnknownResource is returned for resource codes missing from the registry.
	ErrUnknownResource = errors.New("dashboard: unknown resource")

	// ErrQueryNotFound is returned when refetching a key that was never fetched.
	ErrQueryNotFound = errors.New("dashboard: query not found")

	errMissingUsersRepository = errors.New("dashboard: users repository not configured")
)

// LoginError carries the user-facing message of a rejected login.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	return "dashboard: login rejected: " + e.Message
}
