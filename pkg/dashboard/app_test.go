package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/goliatone/go-userdash/components/dashboard"
	"github.com/goliatone/go-userdash/pkg/usersapi"
)

type stubRenderer struct{}

func (stubRenderer) Render(name string, _ any, out ...io.Writer) (string, error) {
	if len(out) > 0 && out[0] != nil {
		_, _ = io.WriteString(out[0], name)
	}
	return name, nil
}

func offlineConfig() Config {
	cfg := DefaultConfig()
	cfg.Offline = true
	cfg.MockDelays = core.MockDelays{}
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCTime = 0
	_, err := New(cfg, WithRenderer(stubRenderer{}))
	require.Error(t, err)
}

func TestSnapshotResolvesTab(t *testing.T) {
	app, err := New(offlineConfig(), WithRenderer(stubRenderer{}), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	view, err := app.Snapshot(context.Background(), "jane@example.com", "pw", "users")
	require.NoError(t, err)
	assert.Equal(t, core.TabUsers, view.Tab)
	require.Len(t, view.Panels, 1)
	assert.Len(t, view.Panels[0].Users, len(usersapi.DemoUsers()))
	assert.Zero(t, app.Queries.Len(), "snapshot logout drops its entries")

	_, err = app.Snapshot(context.Background(), "jane@example.com", "", "users")
	var loginErr *core.LoginError
	assert.ErrorAs(t, err, &loginErr)
}

func TestStartPurgesChartsOfEndedSessions(t *testing.T) {
	cfg := offlineConfig()
	cfg.GCTime = 20 * time.Millisecond
	cfg.GCInterval = 5 * time.Millisecond
	app, err := New(cfg, WithRenderer(stubRenderer{}), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	for range 3 {
		_, err := app.Snapshot(context.Background(), "jane@example.com", "pw", "activity")
		require.NoError(t, err)
	}
	require.Equal(t, 3, app.Charts.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Start(ctx)
	assert.Eventually(t, func() bool { return app.Charts.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestNewKeepsZeroStaleTimesFromConfig(t *testing.T) {
	cfg := offlineConfig()
	cfg.StaleTimes = core.StaleTimes{}
	app, err := New(cfg, WithRenderer(stubRenderer{}), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	res, ok := app.Service.Registry().Resource(core.ResourceUsers)
	require.True(t, ok)
	assert.Zero(t, res.StaleTime)
}

func TestHTTPHandlerEndToEnd(t *testing.T) {
	users := usersapi.NewMockClient(usersapi.DemoUsers())
	app, err := New(offlineConfig(),
		WithRenderer(stubRenderer{}),
		WithUsersClient(users),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	server := httptest.NewServer(app.HTTPHandler())
	defer server.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	res, err := client.Get(server.URL + "/api/queries/users")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = client.Post(server.URL+"/login", "application/json", strings.NewReader(`{"contact":"jane@example.com","secret":"pw"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = client.Get(server.URL + "/api/queries/users")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var state core.QueryState
	require.NoError(t, json.NewDecoder(res.Body).Decode(&state))
	assert.Equal(t, core.QueryStatusSuccess, state.Status)
	require.Len(t, users.Tokens(), 1)
	assert.NotEmpty(t, users.Tokens()[0])
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	page, err := client.Get(server.URL + "/?tab=sales")
	require.NoError(t, err)
	body, _ := io.ReadAll(page.Body)
	page.Body.Close()
	assert.Equal(t, "dashboard", string(body))
}
