package detect

import (
	"math"
	"testing"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

func reading(plot string, st agro.SensorType, value float64, ts time.Time) agro.SensorReading {
	return agro.SensorReading{PlotID: plot, SensorType: st, Value: value, Timestamp: ts}
}

func TestFeaturesForSeries_SingleReading(t *testing.T) {
	// 2026-03-02 is a Monday.
	ts := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	rows := featuresForSeries([]agro.SensorReading{
		reading("plot-1", agro.SensorMoisture, 62.5, ts),
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if len(row) != numFeatures {
		t.Fatalf("expected %d features, got %d", numFeatures, len(row))
	}

	want := []float64{62.5, 14, 0, 62.5, 0, 0, 0}
	for i, w := range want {
		if math.Abs(row[i]-w) > 1e-9 {
			t.Errorf("feature[%d] = %v, want %v", i, row[i], w)
		}
	}
}

func TestFeaturesForSeries_RollingStats(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	values := []float64{60, 62, 58, 64}
	series := make([]agro.SensorReading, len(values))
	for i, v := range values {
		series[i] = reading("plot-1", agro.SensorMoisture, v, base.Add(time.Duration(i)*30*time.Minute))
	}

	rows := featuresForSeries(series)
	last := rows[3]

	wantMean := (60.0 + 62 + 58 + 64) / 4
	if math.Abs(last[3]-wantMean) > 1e-9 {
		t.Errorf("rolling mean = %v, want %v", last[3], wantMean)
	}
	// Sample standard deviation: sqrt((1+1+9+9)/3).
	wantStd := math.Sqrt(20.0 / 3)
	if math.Abs(last[4]-wantStd) > 1e-9 {
		t.Errorf("rolling std = %v, want %v", last[4], wantStd)
	}
	// Lag of two positions: 64 - 62.
	if math.Abs(last[5]-2) > 1e-9 {
		t.Errorf("value change = %v, want 2", last[5])
	}
	// All readings share one calendar day, so the daily mean equals the
	// overall mean.
	if math.Abs(last[6]-(64-wantMean)) > 1e-9 {
		t.Errorf("daily deviation = %v, want %v", last[6], 64-wantMean)
	}
}

func TestFeaturesForSeries_ChangeZeroForFirstTwo(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	series := []agro.SensorReading{
		reading("plot-1", agro.SensorMoisture, 60, base),
		reading("plot-1", agro.SensorMoisture, 70, base.Add(30*time.Minute)),
	}
	rows := featuresForSeries(series)
	if rows[0][5] != 0 || rows[1][5] != 0 {
		t.Errorf("change for first two readings = %v, %v; want 0, 0", rows[0][5], rows[1][5])
	}
}

func TestFeaturesForSeries_WindowCapped(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	series := make([]agro.SensorReading, rollingWindow+8)
	for i := range series {
		v := 10.0
		if i >= 8 {
			v = 50.0 // window for the last reading holds only these
		}
		series[i] = reading("plot-1", agro.SensorMoisture, v, base.Add(time.Duration(i)*30*time.Minute))
	}
	rows := featuresForSeries(series)
	last := rows[len(rows)-1]
	if math.Abs(last[3]-50) > 1e-9 {
		t.Errorf("rolling mean = %v, want 50 (window should exclude early readings)", last[3])
	}
}

func TestFeaturesForSeries_NonFiniteValueSanitized(t *testing.T) {
	ts := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	rows := featuresForSeries([]agro.SensorReading{
		reading("plot-1", agro.SensorMoisture, math.NaN(), ts),
	})
	for i, v := range rows[0] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("feature[%d] = %v, want finite", i, v)
		}
	}
	if rows[0][0] != 0 {
		t.Errorf("NaN value feature = %v, want 0", rows[0][0])
	}
}

func TestFeatureMatrix_GroupsByPlotAndSensor(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	readings := []agro.SensorReading{
		reading("plot-1", agro.SensorMoisture, 60, base),
		reading("plot-2", agro.SensorMoisture, 30, base.Add(30*time.Minute)),
		reading("plot-1", agro.SensorTemperature, 22, base.Add(30*time.Minute)),
		reading("plot-1", agro.SensorMoisture, 62, base.Add(30*time.Minute)),
	}
	rows := featureMatrix(readings)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	// The plot-2 reading is alone in its series, so its rolling mean is its
	// own value rather than a blend with plot-1.
	found := false
	for _, row := range rows {
		if row[0] == 30 && row[3] == 30 && row[4] == 0 {
			found = true
		}
	}
	if !found {
		t.Error("plot-2 reading should form its own series with single-sample stats")
	}
}

func TestFeatureVector_MatchesBatchRow(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	values := []float64{60, 61, 59, 63, 58, 62}
	series := make([]agro.SensorReading, len(values))
	for i, v := range values {
		series[i] = reading("plot-1", agro.SensorMoisture, v, base.Add(time.Duration(i)*30*time.Minute))
		series[i].ID = int64(i + 1)
	}

	batch := featuresForSeries(series)
	single := featureVector(series[len(series)-1], series[:len(series)-1])

	for i := range single {
		if math.Abs(single[i]-batch[len(batch)-1][i]) > 1e-9 {
			t.Errorf("feature[%d]: single %v != batch %v", i, single[i], batch[len(batch)-1][i])
		}
	}
}

func TestFeatureVector_SkipsStoredCurrentReading(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	values := []float64{52, 50, 55, 53, 57, 51, 54, 56, 49, 58, 59}
	series := make([]agro.SensorReading, len(values))
	for i, v := range values {
		series[i] = reading("plot-1", agro.SensorMoisture, v, base.Add(time.Duration(i)*30*time.Minute))
		series[i].ID = int64(i + 1)
	}
	current := series[len(series)-1]

	// The ingest path stores the reading before scoring it, so the history
	// window already contains the current reading. Its features must match
	// the batch row, not a series with the value counted twice.
	batch := featuresForSeries(series)
	single := featureVector(current, series)

	for i := range single {
		if math.Abs(single[i]-batch[len(batch)-1][i]) > 1e-9 {
			t.Errorf("feature[%d]: single %v != batch %v", i, single[i], batch[len(batch)-1][i])
		}
	}

	// Lag of two positions must reach back past the duplicate: 59 - 49.
	if math.Abs(single[5]-10) > 1e-9 {
		t.Errorf("value change = %v, want 10", single[5])
	}
}

func TestFeatureVector_SkipsUnstoredDuplicate(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	history := []agro.SensorReading{
		reading("plot-1", agro.SensorMoisture, 60, base),
		reading("plot-1", agro.SensorMoisture, 62, base.Add(30*time.Minute)),
	}
	for i := range history {
		history[i].ID = int64(i + 1)
	}
	current := reading("plot-1", agro.SensorMoisture, 62, base.Add(30*time.Minute))

	row := featureVector(current, history)
	wantMean := (60.0 + 62) / 2
	if math.Abs(row[3]-wantMean) > 1e-9 {
		t.Errorf("rolling mean = %v, want %v", row[3], wantMean)
	}
}

func TestFeatureVector_NoHistory(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	row := featureVector(reading("plot-1", agro.SensorHumidity, 55, ts), nil)
	if len(row) != numFeatures {
		t.Fatalf("expected %d features, got %d", numFeatures, len(row))
	}
	if row[0] != 55 || row[3] != 55 || row[4] != 0 {
		t.Errorf("no-history features = %v, want value-based defaults", row)
	}
}
