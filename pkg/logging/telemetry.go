package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Telemetry writes dashboard telemetry events as structured log lines.
// It satisfies dashboard.Telemetry without importing the package.
type Telemetry struct {
	Logger *zerolog.Logger
}

// NewTelemetry binds the sink to a logger. A nil logger resolves per event
// from the request context.
func NewTelemetry(logger *zerolog.Logger) *Telemetry {
	return &Telemetry{Logger: logger}
}

// Record logs the event. Failures and error states go out at warn level,
// cache hits at debug.
func (t *Telemetry) Record(ctx context.Context, event string, payload map[string]any) {
	logger := t.Logger
	if logger == nil {
		logger = FromContext(ctx)
	}
	logger.WithLevel(levelFor(event, payload)).
		Str("event", event).
		Fields(payload).
		Msg("telemetry")
}

func levelFor(event string, payload map[string]any) zerolog.Level {
	if strings.HasSuffix(event, "_failed") || strings.HasSuffix(event, "_rejected") {
		return zerolog.WarnLevel
	}
	if status, ok := payload["status"].(string); ok && status == "error" {
		return zerolog.WarnLevel
	}
	if strings.HasSuffix(event, "cache_hit") {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
