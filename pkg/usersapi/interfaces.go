package usersapi

import (
	"context"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// UsersClient fetches the user directory with an optional bearer token.
type UsersClient interface {
	FetchUsers(ctx context.Context, token string) ([]dashboard.UserRecord, error)
}
