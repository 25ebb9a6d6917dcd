package usersapi

import (
	"context"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// NewUsersRepository adapts a users client into a dashboard repository.
func NewUsersRepository(client UsersClient) dashboard.UsersRepository {
	return &usersRepository{client: client}
}

type usersRepository struct {
	client UsersClient
}

func (r *usersRepository) FetchUsers(ctx context.Context, token string) ([]dashboard.UserRecord, error) {
	users, err := r.client.FetchUsers(ctx, token)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []dashboard.UserRecord{}
	}
	return users, nil
}
