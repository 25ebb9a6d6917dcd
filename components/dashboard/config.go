package dashboard

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the tunable policy of a dashboard process. Durations use Go
// syntax in YAML ("30s", "5m").
type Config struct {
	UsersBaseURL       string        `yaml:"users_base_url" json:"users_base_url"`
	StaleTimes         StaleTimes    `yaml:"stale_times" json:"stale_times"`
	GCTime             time.Duration `yaml:"gc_time" json:"gc_time"`
	GCInterval         time.Duration `yaml:"gc_interval" json:"gc_interval"`
	MockDelays         MockDelays    `yaml:"mock_delays" json:"mock_delays"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" json:"session_idle_timeout"`
	ChartTheme         string        `yaml:"chart_theme" json:"chart_theme"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout"`
	Offline            bool          `yaml:"offline" json:"offline"`
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return Config{}, fmt.Errorf("dashboard: open config %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("dashboard: decode config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig reads YAML from r. Unknown keys are rejected and an empty
// document yields the defaults.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("dashboard: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the coordinator cannot work with.
func (c Config) Validate() error {
	if !c.Offline {
		u, err := url.Parse(c.UsersBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("dashboard: users_base_url %q must be an absolute URL", c.UsersBaseURL)
		}
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"stale_times.users", c.StaleTimes.Users},
		{"stale_times.sales", c.StaleTimes.Sales},
		{"stale_times.activity", c.StaleTimes.Activity},
		{"mock_delays.sales", c.MockDelays.Sales},
		{"mock_delays.activity", c.MockDelays.Activity},
		{"request_timeout", c.RequestTimeout},
		{"session_idle_timeout", c.SessionIdleTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("dashboard: %s cannot be negative", d.name)
		}
	}
	if c.GCTime <= 0 {
		return fmt.Errorf("dashboard: gc_time must be positive")
	}
	if c.GCInterval <= 0 {
		return fmt.Errorf("dashboard: gc_interval must be positive")
	}
	return nil
}
