package field

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
	"github.com/verdantio/cropsense/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HTTPProvider     = (*Module)(nil)
	_ plugin.HealthChecker    = (*Module)(nil)
	_ plugin.Validator        = (*Module)(nil)
	_ roles.TelemetryProvider = (*Module)(nil)
)

// Module implements the Field telemetry plugin: farm and plot registration,
// sensor reading ingest, and retention housekeeping. Every stored reading is
// announced on the bus for the detection pipeline.
type Module struct {
	logger *zap.Logger
	cfg    FieldConfig
	store  *FieldStore
	bus    plugin.EventBus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Field plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "field",
		Version:     "0.1.0",
		Description: "Farm, plot, and sensor reading telemetry",
		Roles:       []string{roles.RoleTelemetry},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal field config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "field", migrations()); err != nil {
			return fmt.Errorf("field migrations: %w", err)
		}
		m.store = NewFieldStore(deps.Store.DB())
	}
	m.bus = deps.Bus

	m.logger.Info("field module initialized",
		zap.Duration("reading_retention", m.cfg.ReadingRetention),
		zap.Int("max_bulk_readings", m.cfg.MaxBulkReadings),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startMaintenance()
	m.logger.Info("field module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("field module stopped")
	return nil
}

// -- plugin.Validator --

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// -- plugin.HealthChecker --

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.store == nil {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "no database configured",
		}
	}
	plots, err := m.store.ListPlots(ctx, "")
	if err != nil {
		return plugin.HealthStatus{
			Status:  "unhealthy",
			Message: "plot query failed",
		}
	}
	return plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"plots": strconv.Itoa(len(plots)),
		},
	}
}

// -- roles.TelemetryProvider --

// Readings implements roles.TelemetryProvider.
func (m *Module) Readings(ctx context.Context, q roles.ReadingQuery) ([]agro.SensorReading, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.QueryReadings(ctx, q)
}

// PlotByID implements roles.TelemetryProvider.
func (m *Module) PlotByID(ctx context.Context, id string) (*agro.FieldPlot, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.GetPlot(ctx, id)
}

// -- Ingest --

// Ingest validates and stores one reading, then publishes it for the
// detection pipeline.
func (m *Module) Ingest(ctx context.Context, r *agro.SensorReading) error {
	if err := m.validateReading(r); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Source == "" {
		r.Source = "sensor"
	}

	if err := m.store.InsertReading(ctx, r); err != nil {
		return err
	}
	readingsIngested.WithLabelValues(string(r.SensorType), r.Source).Inc()
	m.publishReading(ctx, *r)
	return nil
}

// IngestBatch validates and stores a batch of readings atomically, then
// publishes each one.
func (m *Module) IngestBatch(ctx context.Context, readings []agro.SensorReading) error {
	if len(readings) == 0 {
		return fmt.Errorf("empty batch")
	}
	if len(readings) > m.cfg.MaxBulkReadings {
		return fmt.Errorf("batch of %d exceeds the %d reading limit", len(readings), m.cfg.MaxBulkReadings)
	}
	now := time.Now().UTC()
	for i := range readings {
		r := &readings[i]
		if err := m.validateReading(r); err != nil {
			return fmt.Errorf("reading %d: %w", i, err)
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if r.Source == "" {
			r.Source = "sensor"
		}
	}

	if err := m.store.InsertReadings(ctx, readings); err != nil {
		return err
	}
	for i := range readings {
		readingsIngested.WithLabelValues(string(readings[i].SensorType), readings[i].Source).Inc()
		m.publishReading(ctx, readings[i])
	}
	return nil
}

// validateReading rejects readings that cannot be stored: missing plot,
// unknown sensor type, or a non-finite value. Out-of-range values are stored
// as-is; flagging them is the detector's job.
func (m *Module) validateReading(r *agro.SensorReading) error {
	if r.PlotID == "" {
		readingsRejected.WithLabelValues("missing_plot").Inc()
		return fmt.Errorf("plot_id is required")
	}
	if !agro.ValidSensorType(r.SensorType) {
		readingsRejected.WithLabelValues("unknown_sensor_type").Inc()
		return fmt.Errorf("unknown sensor type %q", r.SensorType)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		readingsRejected.WithLabelValues("non_finite_value").Inc()
		return fmt.Errorf("value must be finite")
	}
	return nil
}

func (m *Module) publishReading(ctx context.Context, r agro.SensorReading) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAsync(ctx, plugin.Event{
		Topic:   TopicReadingIngested,
		Source:  "field",
		Payload: r,
	})
}
