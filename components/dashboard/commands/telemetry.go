package commands

import (
	"context"

	dashboard "github.com/goliatone/go-userdash/components/dashboard"
)

// Telemetry allows commands to emit structured events.
type Telemetry = dashboard.Telemetry

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
