// Package roles defines typed contracts for module roles.
// Modules that fill a role (declared via PluginInfo.Roles) should implement
// the corresponding interface so callers can use type-safe access via
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/verdantio/cropsense/pkg/agro"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleTelemetry = "telemetry"
	RoleDetection = "detection"
)

// TelemetryProvider is implemented by modules that store field readings.
type TelemetryProvider interface {
	// Readings returns readings matching the query, oldest first.
	Readings(ctx context.Context, q ReadingQuery) ([]agro.SensorReading, error)

	// PlotByID returns a single plot by its ID.
	PlotByID(ctx context.Context, id string) (*agro.FieldPlot, error)
}

// DetectionProvider is implemented by modules that evaluate readings for
// anomalies. Evaluate never fails: when the trained model is unavailable or
// prediction errors out, the rule-based fallback supplies the verdict.
type DetectionProvider interface {
	// Evaluate scores a reading, records any anomaly, and returns the verdict.
	Evaluate(ctx context.Context, r agro.SensorReading) agro.Verdict

	// Anomalies returns recorded anomalies, optionally filtered by plot.
	// Pass empty plotID to list all anomalies.
	Anomalies(ctx context.Context, plotID string) ([]agro.AnomalyEvent, error)
}
