package field

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/verdantio/cropsense/internal/config"
	"github.com/verdantio/cropsense/internal/event"
	"github.com/verdantio/cropsense/internal/store"
	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
	"github.com/verdantio/cropsense/pkg/plugin/plugintest"
	"github.com/verdantio/cropsense/pkg/roles"
	"go.uber.org/zap"
)

func TestPluginContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

func newTestModule(t *testing.T, bus plugin.EventBus) *Module {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := New()
	err = m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Store:  db,
		Bus:    bus,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return m
}

func seedPlot(t *testing.T, m *Module) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := m.store.CreateFarm(ctx, &agro.FarmProfile{ID: "farm-1", Name: "Test Farm", CreatedAt: now}); err != nil {
		t.Fatalf("CreateFarm: %v", err)
	}
	if err := m.store.CreatePlot(ctx, &agro.FieldPlot{ID: "plot-1", FarmID: "farm-1", Name: "Block A", CreatedAt: now}); err != nil {
		t.Fatalf("CreatePlot: %v", err)
	}
	return "plot-1"
}

func TestInit_WithConfig(t *testing.T) {
	v := viper.New()
	v.Set("reading_retention", "720h")
	v.Set("max_bulk_readings", 250)

	m := New()
	err := m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Config: config.New(v),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if m.cfg.ReadingRetention != 720*time.Hour {
		t.Errorf("cfg.ReadingRetention = %v, want 720h", m.cfg.ReadingRetention)
	}
	if m.cfg.MaxBulkReadings != 250 {
		t.Errorf("cfg.MaxBulkReadings = %d, want 250", m.cfg.MaxBulkReadings)
	}
}

func TestIngest_StoresAndPublishes(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	m := newTestModule(t, bus)
	plotID := seedPlot(t, m)

	received := make(chan agro.SensorReading, 1)
	bus.Subscribe(TopicReadingIngested, func(_ context.Context, e plugin.Event) {
		if r, ok := e.Payload.(agro.SensorReading); ok {
			received <- r
		}
	})

	r := &agro.SensorReading{
		PlotID:     plotID,
		SensorType: agro.SensorMoisture,
		Value:      58.2,
	}
	if err := m.Ingest(context.Background(), r); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if r.ID == 0 {
		t.Error("reading id not assigned")
	}
	if r.Timestamp.IsZero() {
		t.Error("timestamp not defaulted")
	}
	if r.Source != "sensor" {
		t.Errorf("Source = %q, want sensor", r.Source)
	}

	select {
	case got := <-received:
		if got.PlotID != plotID || got.Value != 58.2 {
			t.Errorf("published reading = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reading event not published")
	}

	stored, err := m.Readings(context.Background(), roles.ReadingQuery{PlotID: plotID})
	if err != nil {
		t.Fatalf("Readings: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("expected 1 stored reading, got %d", len(stored))
	}
}

func TestIngest_RejectsInvalid(t *testing.T) {
	m := newTestModule(t, nil)
	seedPlot(t, m)

	tests := []struct {
		name    string
		reading agro.SensorReading
	}{
		{"missing plot", agro.SensorReading{SensorType: agro.SensorMoisture, Value: 60}},
		{"unknown sensor type", agro.SensorReading{PlotID: "plot-1", SensorType: "ph", Value: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.reading
			if err := m.Ingest(context.Background(), &r); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIngestBatch_AllOrNothing(t *testing.T) {
	m := newTestModule(t, nil)
	plotID := seedPlot(t, m)

	batch := []agro.SensorReading{
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 60},
		{PlotID: plotID, SensorType: "bogus", Value: 1},
	}
	if err := m.IngestBatch(context.Background(), batch); err == nil {
		t.Fatal("expected batch with invalid reading to fail")
	}

	stored, _ := m.Readings(context.Background(), roles.ReadingQuery{PlotID: plotID})
	if len(stored) != 0 {
		t.Errorf("failed batch stored %d readings, want 0", len(stored))
	}
}

func TestIngestBatch_SizeLimit(t *testing.T) {
	m := newTestModule(t, nil)
	plotID := seedPlot(t, m)
	m.cfg.MaxBulkReadings = 2

	batch := make([]agro.SensorReading, 3)
	for i := range batch {
		batch[i] = agro.SensorReading{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 60}
	}
	if err := m.IngestBatch(context.Background(), batch); err == nil {
		t.Error("expected oversized batch to be rejected")
	}
}

func TestPlotByID(t *testing.T) {
	m := newTestModule(t, nil)
	plotID := seedPlot(t, m)

	plot, err := m.PlotByID(context.Background(), plotID)
	if err != nil {
		t.Fatalf("PlotByID: %v", err)
	}
	if plot == nil || plot.Name != "Block A" {
		t.Errorf("plot = %+v", plot)
	}
}

func TestHealth_CountsPlots(t *testing.T) {
	m := newTestModule(t, nil)
	seedPlot(t, m)

	h := m.Health(context.Background())
	if h.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", h.Status)
	}
	if h.Details["plots"] != "1" {
		t.Errorf("plots = %q, want 1", h.Details["plots"])
	}
}

func TestValidateConfig_RejectsBadRetention(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	m.cfg.ReadingRetention = 0
	if err := m.ValidateConfig(); err == nil {
		t.Error("ValidateConfig should reject zero retention")
	}
}
