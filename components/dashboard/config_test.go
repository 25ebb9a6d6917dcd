package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.StaleTimes.Users)
	assert.Equal(t, 60*time.Second, cfg.StaleTimes.Sales)
	assert.Equal(t, 5*time.Minute, cfg.GCTime)
}

func TestDecodeConfigOverridesSelectedKeys(t *testing.T) {
	doc := `
users_base_url: http://localhost:9000
stale_times:
  users: 5s
mock_delays:
  sales: 0s
offline: true
`
	cfg, err := DecodeConfig(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.UsersBaseURL)
	assert.Equal(t, 5*time.Second, cfg.StaleTimes.Users)
	assert.Equal(t, DefaultSalesStaleTime, cfg.StaleTimes.Sales)
	assert.Zero(t, cfg.MockDelays.Sales)
	assert.Equal(t, DefaultActivityDelay, cfg.MockDelays.Activity)
	assert.True(t, cfg.Offline)
}

func TestDecodeConfigRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("stale_time: 10s\n"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GCTime = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.StaleTimes.Sales = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UsersBaseURL = "not a url"
	assert.Error(t, cfg.Validate())
	cfg.Offline = true
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chart_theme: dark\ngc_time: 10m\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.ChartTheme)
	assert.Equal(t, 10*time.Minute, cfg.GCTime)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStaleTimesFor(t *testing.T) {
	times := DefaultStaleTimes()
	assert.Equal(t, DefaultUsersStaleTime, times.For(ResourceUsers))
	assert.Equal(t, DefaultActivityStaleTime, times.For(ResourceActivity))
	assert.Zero(t, times.For("unknown"))
}
