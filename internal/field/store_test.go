package field

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/verdantio/cropsense/internal/store"
	"github.com/verdantio/cropsense/internal/testutil"
	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/roles"
)

func testFieldStore(t *testing.T) *FieldStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx, "field", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewFieldStore(db.DB())
}

func seedFarmAndPlot(t *testing.T, s *FieldStore) (farmID, plotID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	farm := testutil.NewFarm(testutil.WithFarmName("North Valley"), testutil.WithOwner("Imani"))
	farm.ID = "farm-1"
	farm.CreatedAt = now
	if err := s.CreateFarm(ctx, &farm); err != nil {
		t.Fatalf("CreateFarm: %v", err)
	}
	plot := testutil.NewPlot(farm.ID, testutil.WithPlotName("East Block"), testutil.WithCrop("maize"))
	plot.ID = "plot-1"
	plot.CreatedAt = now
	if err := s.CreatePlot(ctx, &plot); err != nil {
		t.Fatalf("CreatePlot: %v", err)
	}
	return farm.ID, plot.ID
}

func TestCreateFarm_AndGet(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	farmID, _ := seedFarmAndPlot(t, s)

	farm, err := s.GetFarm(ctx, farmID)
	if err != nil {
		t.Fatalf("GetFarm: %v", err)
	}
	if farm == nil {
		t.Fatal("farm not found")
	}
	if farm.Name != "North Valley" || farm.Owner != "Imani" {
		t.Errorf("farm = %+v", farm)
	}

	missing, err := s.GetFarm(ctx, "nope")
	if err != nil {
		t.Fatalf("GetFarm missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing farm")
	}
}

func TestListPlots_FilterByFarm(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	seedFarmAndPlot(t, s)

	now := time.Now().UTC()
	_ = s.CreateFarm(ctx, &agro.FarmProfile{ID: "farm-2", Name: "South Ridge", CreatedAt: now})
	_ = s.CreatePlot(ctx, &agro.FieldPlot{ID: "plot-2", FarmID: "farm-2", Name: "West Block", CreatedAt: now})

	all, err := s.ListPlots(ctx, "")
	if err != nil {
		t.Fatalf("ListPlots: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 plots, got %d", len(all))
	}

	one, err := s.ListPlots(ctx, "farm-2")
	if err != nil {
		t.Fatalf("ListPlots farm-2: %v", err)
	}
	if len(one) != 1 || one[0].ID != "plot-2" {
		t.Errorf("farm filter returned %v", one)
	}
}

func TestDeletePlot_Missing(t *testing.T) {
	s := testFieldStore(t)
	err := s.DeletePlot(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("DeletePlot of missing id error = %v, want sql.ErrNoRows", err)
	}
}

func TestInsertReading_AssignsID(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	r := testutil.NewReading(plotID,
		testutil.WithValue(61.5),
		testutil.WithTimestamp(time.Now().UTC().Truncate(time.Second)),
	)
	if err := s.InsertReading(ctx, &r); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if r.ID == 0 {
		t.Error("reading id not assigned")
	}
}

func TestInsertReadings_Bulk(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	now := time.Now().UTC().Truncate(time.Second)
	readings := testutil.ReadingSeries(plotID, agro.SensorTemperature, 20, 5, now, 30*time.Minute)
	if err := s.InsertReadings(ctx, readings); err != nil {
		t.Fatalf("InsertReadings: %v", err)
	}
	for i, r := range readings {
		if r.ID == 0 {
			t.Errorf("reading %d id not assigned", i)
		}
	}

	stored, err := s.QueryReadings(ctx, roles.ReadingQuery{PlotID: plotID})
	if err != nil {
		t.Fatalf("QueryReadings: %v", err)
	}
	if len(stored) != 5 {
		t.Errorf("expected 5 readings, got %d", len(stored))
	}
}

func TestQueryReadings_Filters(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	readings := []agro.SensorReading{
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 60, Timestamp: base, Source: "sensor"},
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 62, Timestamp: base.Add(30 * time.Minute), Source: "sensor"},
		{PlotID: plotID, SensorType: agro.SensorTemperature, Value: 22, Timestamp: base.Add(time.Hour), Source: "sensor"},
	}
	if err := s.InsertReadings(ctx, readings); err != nil {
		t.Fatalf("InsertReadings: %v", err)
	}

	moisture, err := s.QueryReadings(ctx, roles.ReadingQuery{PlotID: plotID, SensorType: agro.SensorMoisture})
	if err != nil {
		t.Fatalf("QueryReadings moisture: %v", err)
	}
	if len(moisture) != 2 {
		t.Errorf("expected 2 moisture readings, got %d", len(moisture))
	}
	if len(moisture) == 2 && !moisture[0].Timestamp.Before(moisture[1].Timestamp) {
		t.Error("readings not ordered oldest first")
	}

	since, err := s.QueryReadings(ctx, roles.ReadingQuery{PlotID: plotID, Since: base.Add(45 * time.Minute)})
	if err != nil {
		t.Fatalf("QueryReadings since: %v", err)
	}
	if len(since) != 1 || since[0].SensorType != agro.SensorTemperature {
		t.Errorf("since filter returned %v", since)
	}

	limited, err := s.QueryReadings(ctx, roles.ReadingQuery{PlotID: plotID, Limit: 1})
	if err != nil {
		t.Fatalf("QueryReadings limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d readings", len(limited))
	}
}

func TestQueryReadings_NewestKeepsTrailingWindow(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	// Two days of moisture readings at the 30-minute cadence: more rows in
	// the window than the limit keeps.
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	readings := testutil.ReadingSeries(plotID, agro.SensorMoisture, 40, 48, base, 30*time.Minute)
	if err := s.InsertReadings(ctx, readings); err != nil {
		t.Fatalf("InsertReadings: %v", err)
	}

	got, err := s.QueryReadings(ctx, roles.ReadingQuery{
		PlotID:     plotID,
		SensorType: agro.SensorMoisture,
		Since:      base,
		Limit:      24,
		Newest:     true,
	})
	if err != nil {
		t.Fatalf("QueryReadings newest: %v", err)
	}
	if len(got) != 24 {
		t.Fatalf("expected 24 readings, got %d", len(got))
	}

	// The limit must drop the oldest rows, not the newest, and the slice
	// still comes back oldest first.
	wantLast := base.Add(47 * 30 * time.Minute)
	if !got[len(got)-1].Timestamp.Equal(wantLast) {
		t.Errorf("last reading at %v, want the newest at %v", got[len(got)-1].Timestamp, wantLast)
	}
	wantFirst := base.Add(24 * 30 * time.Minute)
	if !got[0].Timestamp.Equal(wantFirst) {
		t.Errorf("first reading at %v, want %v", got[0].Timestamp, wantFirst)
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Fatalf("readings out of order at index %d", i)
		}
	}
}

func TestPlotSummary(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	readings := []agro.SensorReading{
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 60, Timestamp: base, Source: "sensor"},
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 64, Timestamp: base.Add(30 * time.Minute), Source: "sensor"},
		{PlotID: plotID, SensorType: agro.SensorHumidity, Value: 70, Timestamp: base, Source: "sensor"},
	}
	if err := s.InsertReadings(ctx, readings); err != nil {
		t.Fatalf("InsertReadings: %v", err)
	}

	summary, err := s.PlotSummary(ctx, plotID)
	if err != nil {
		t.Fatalf("PlotSummary: %v", err)
	}
	if summary.Readings != 3 {
		t.Errorf("Readings = %d, want 3", summary.Readings)
	}
	if len(summary.Sensors) != 2 {
		t.Fatalf("expected 2 sensor summaries, got %d", len(summary.Sensors))
	}
	for _, ss := range summary.Sensors {
		if ss.SensorType == agro.SensorMoisture {
			if ss.LastValue != 64 {
				t.Errorf("moisture LastValue = %v, want 64 (newest)", ss.LastValue)
			}
			if ss.Count != 2 {
				t.Errorf("moisture Count = %d, want 2", ss.Count)
			}
		}
	}
}

func TestDeleteOldReadings(t *testing.T) {
	s := testFieldStore(t)
	ctx := context.Background()
	_, plotID := seedFarmAndPlot(t, s)

	now := time.Now().UTC()
	readings := []agro.SensorReading{
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 60, Timestamp: now.Add(-100 * 24 * time.Hour), Source: "sensor"},
		{PlotID: plotID, SensorType: agro.SensorMoisture, Value: 61, Timestamp: now, Source: "sensor"},
	}
	if err := s.InsertReadings(ctx, readings); err != nil {
		t.Fatalf("InsertReadings: %v", err)
	}

	deleted, err := s.DeleteOldReadings(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOldReadings: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
