package dashboard

import (
	core "github.com/goliatone/go-userdash/components/dashboard"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Config re-export for convenience.
type Config = core.Config

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// DefaultConfig proxies to the internal defaults.
func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig proxies to the internal YAML loader.
func LoadConfig(path string) (Config, error) {
	return core.LoadConfig(path)
}
