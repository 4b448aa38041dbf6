// Package simulate generates realistic baseline sensor streams for field
// plots: a daily moisture depletion cycle with irrigation bumps, a sinusoidal
// soil temperature curve, and humidity coupled inversely to temperature.
package simulate

import (
	"math"
	"math/rand"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// Cadence is the interval between generated readings.
const Cadence = 30 * time.Minute

// irrigationHours are the hours of day when the irrigation system runs and
// moisture jumps.
var irrigationHours = map[int]bool{6: true, 18: true}

// Generator produces baseline readings. A fixed seed reproduces the exact
// same stream.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a seeded Generator.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Moisture returns simulated soil moisture for the timestamp: a base level
// that depletes through the day, topped up at irrigation hours.
func (g *Generator) Moisture(ts time.Time) float64 {
	h := ts.UTC().Hour()
	v := 60 - float64(h)*1.2
	if irrigationHours[h] {
		v += 15
	}
	v += g.rng.NormFloat64() * 2
	return clamp(v, 30, 80)
}

// Temperature returns simulated soil temperature: a sine curve peaking in
// the afternoon.
func (g *Generator) Temperature(ts time.Time) float64 {
	v := temperatureCurve(ts) + g.rng.NormFloat64()
	return clamp(v, 10, 40)
}

// Humidity returns simulated ambient humidity, inversely coupled to the
// temperature curve.
func (g *Generator) Humidity(ts time.Time) float64 {
	v := 90 - 1.5*temperatureCurve(ts) + g.rng.NormFloat64()*3
	return clamp(v, 20, 95)
}

// Value returns a simulated value for the given sensor type.
func (g *Generator) Value(st agro.SensorType, ts time.Time) float64 {
	switch st {
	case agro.SensorMoisture:
		return g.Moisture(ts)
	case agro.SensorTemperature:
		return g.Temperature(ts)
	case agro.SensorHumidity:
		return g.Humidity(ts)
	}
	return 0
}

// Reading builds a complete simulated reading for a plot.
func (g *Generator) Reading(plotID string, st agro.SensorType, ts time.Time) agro.SensorReading {
	return agro.SensorReading{
		PlotID:     plotID,
		SensorType: st,
		Value:      g.Value(st, ts),
		Timestamp:  ts.UTC(),
		Source:     "simulator",
	}
}

// Backfill generates readings for every sensor type at the standard cadence
// over [start, end), oldest first.
func (g *Generator) Backfill(plotID string, start, end time.Time) []agro.SensorReading {
	var out []agro.SensorReading
	for ts := start; ts.Before(end); ts = ts.Add(Cadence) {
		for _, st := range agro.SensorTypes() {
			out = append(out, g.Reading(plotID, st, ts))
		}
	}
	return out
}

func temperatureCurve(ts time.Time) float64 {
	h := float64(ts.UTC().Hour())
	return 23 + 8*math.Sin((h-6)*math.Pi/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
