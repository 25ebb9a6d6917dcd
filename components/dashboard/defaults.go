package dashboard

import (
	"time"

	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	DefaultUsersBaseURL       = "https://jsonplaceholder.typicode.com"
	DefaultUsersStaleTime     = 30 * time.Second
	DefaultSalesStaleTime     = 60 * time.Second
	DefaultActivityStaleTime  = 60 * time.Second
	DefaultGCInterval         = time.Minute
	DefaultSessionIdleTimeout = 30 * time.Minute
)

// StaleTimes holds the freshness threshold per resource.
type StaleTimes struct {
	Users    time.Duration `yaml:"users" json:"users"`
	Sales    time.Duration `yaml:"sales" json:"sales"`
	Activity time.Duration `yaml:"activity" json:"activity"`
}

// DefaultStaleTimes returns 30s for the live endpoint and 60s for the mocks.
func DefaultStaleTimes() StaleTimes {
	return StaleTimes{
		Users:    DefaultUsersStaleTime,
		Sales:    DefaultSalesStaleTime,
		Activity: DefaultActivityStaleTime,
	}
}

// For returns the threshold for a resource code, zero for unknown codes.
func (s StaleTimes) For(resource string) time.Duration {
	switch resource {
	case ResourceUsers:
		return s.Users
	case ResourceSales:
		return s.Sales
	case ResourceActivity:
		return s.Activity
	default:
		return 0
	}
}

// MockDelays holds the artificial latency of the mock generators.
type MockDelays struct {
	Sales    time.Duration `yaml:"sales" json:"sales"`
	Activity time.Duration `yaml:"activity" json:"activity"`
}

// DefaultMockDelays returns 800ms for sales and 600ms for activity.
func DefaultMockDelays() MockDelays {
	return MockDelays{
		Sales:    DefaultSalesDelay,
		Activity: DefaultActivityDelay,
	}
}

// DefaultConfig mirrors the built-in policy constants.
func DefaultConfig() Config {
	return Config{
		UsersBaseURL:       DefaultUsersBaseURL,
		StaleTimes:         DefaultStaleTimes(),
		GCTime:             DefaultGCTime,
		GCInterval:         DefaultGCInterval,
		MockDelays:         DefaultMockDelays(),
		SessionIdleTimeout: DefaultSessionIdleTimeout,
		ChartTheme:         types.ThemeWesteros,
	}
}
