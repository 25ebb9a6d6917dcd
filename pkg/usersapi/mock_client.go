package usersapi

import (
	"context"
	"sync"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// MockClient implements UsersClient using in-memory fixtures.
type MockClient struct {
	mu     sync.RWMutex
	users  []dashboard.UserRecord
	err    error
	tokens []string
}

// NewMockClient builds a mock client serving users.
func NewMockClient(users []dashboard.UserRecord) *MockClient {
	return &MockClient{users: users}
}

// FetchUsers returns a copy of the fixtures or the configured error.
func (c *MockClient) FetchUsers(_ context.Context, token string) ([]dashboard.UserRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
	if c.err != nil {
		return nil, c.err
	}
	return cloneUsers(c.users), nil
}

// SetUsers replaces the fixtures.
func (c *MockClient) SetUsers(users []dashboard.UserRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = users
}

// SetError makes subsequent fetches fail with err; nil restores success.
func (c *MockClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Tokens returns the tokens seen so far, in call order.
func (c *MockClient) Tokens() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tokens...)
}

func cloneUsers(users []dashboard.UserRecord) []dashboard.UserRecord {
	out := make([]dashboard.UserRecord, len(users))
	for i, user := range users {
		out[i] = user
		if user.Company != nil {
			company := *user.Company
			out[i].Company = &company
		}
	}
	return out
}

// DemoUsers mirrors the first records of the public demo directory.
func DemoUsers() []dashboard.UserRecord {
	return []dashboard.UserRecord{
		{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz", Company: &dashboard.Company{Name: "Romaguera-Crona"}},
		{ID: 2, Name: "Ervin Howell", Email: "Shanna@melissa.tv", Company: &dashboard.Company{Name: "Deckow-Crist"}},
		{ID: 3, Name: "Clementine Bauch", Email: "Nathan@yesenia.net", Company: &dashboard.Company{Name: "Romaguera-Jacobson"}},
		{ID: 4, Name: "Patricia Lebsack", Email: "Julianne.OConner@kory.org", Company: &dashboard.Company{Name: "Robel-Corkery"}},
		{ID: 5, Name: "Chelsey Dietrich", Email: "Lucio_Hettinger@annie.ca", Company: &dashboard.Company{Name: "Keebler LLC"}},
	}
}
