package detect

import (
	"math"
	"sort"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// The model scores seven features per reading: the raw value, hour of day,
// day of week (Monday=0), a six-hour rolling mean and standard deviation,
// the change against the reading two positions back, and the deviation from
// the same calendar day's mean.
const numFeatures = 7

// rollingWindow is six hours of readings at the expected 30-minute cadence.
const rollingWindow = 12

// featureMatrix derives one feature row per reading. Readings are grouped
// per plot and sensor type so that rolling statistics never mix series, and
// each group is ordered by timestamp before extraction.
func featureMatrix(readings []agro.SensorReading) [][]float64 {
	groups := make(map[string][]agro.SensorReading)
	for _, r := range readings {
		key := r.PlotID + "|" + string(r.SensorType)
		groups[key] = append(groups[key], r)
	}

	// Deterministic row order regardless of input ordering.
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows [][]float64
	for _, k := range keys {
		series := groups[k]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		rows = append(rows, featuresForSeries(series)...)
	}
	return rows
}

// featuresForSeries computes feature rows for a single chronological series
// of readings from one plot and sensor type.
func featuresForSeries(series []agro.SensorReading) [][]float64 {
	values := make([]float64, len(series))
	for i, r := range series {
		values[i] = r.Value
	}
	daySum, dayCount := dailyTotals(series)

	rows := make([][]float64, len(series))
	for i, r := range series {
		start := i - rollingWindow + 1
		if start < 0 {
			start = 0
		}
		window := values[start : i+1]
		mean := meanOf(window)
		std := sampleStdOf(window, mean)

		// Lag of two positions, one hour at the 30-minute cadence.
		change := 0.0
		if i >= 2 {
			change = values[i] - values[i-2]
		}

		day := dayKey(r.Timestamp)
		dayMean := daySum[day] / float64(dayCount[day])

		ts := r.Timestamp.UTC()
		row := []float64{
			r.Value,
			float64(ts.Hour()),
			float64((int(ts.Weekday()) + 6) % 7),
			mean,
			std,
			change,
			r.Value - dayMean,
		}
		sanitize(row)
		rows[i] = row
	}
	return rows
}

// featureVector computes the feature row for the newest reading, using
// history as its chronological context. History must belong to the same plot
// and sensor type; ordering is handled here. A history entry that is the
// reading itself, which happens when the reading was stored before scoring,
// is dropped so the value is not counted twice.
func featureVector(r agro.SensorReading, history []agro.SensorReading) []float64 {
	series := make([]agro.SensorReading, 0, len(history)+1)
	for _, h := range history {
		if r.ID != 0 && h.ID == r.ID {
			continue
		}
		if r.ID == 0 && h.Timestamp.Equal(r.Timestamp) && h.Value == r.Value {
			continue
		}
		series = append(series, h)
	}
	series = append(series, r)
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	rows := featuresForSeries(series)
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].ID == r.ID && series[i].Timestamp.Equal(r.Timestamp) {
			return rows[i]
		}
	}
	return rows[len(rows)-1]
}

func dailyTotals(series []agro.SensorReading) (map[string]float64, map[string]int) {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for _, r := range series {
		day := dayKey(r.Timestamp)
		sum[day] += r.Value
		count[day]++
	}
	return sum, count
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stdOf is the population standard deviation; a single sample has no spread.
func stdOf(vals []float64, mean float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// sampleStdOf is the sample standard deviation, dividing by n-1.
func sampleStdOf(vals []float64, mean float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

// sanitize zeroes any non-finite feature in place so a bad reading cannot
// poison the scaler or the forest.
func sanitize(row []float64) {
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
}
