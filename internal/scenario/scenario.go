// Package scenario injects field failures into simulated sensor streams:
// sudden moisture drops, erratic spikes, and slow calibration drift. Each
// scenario runs over a scheduled window and shapes readings according to how
// far into the window the stream is.
package scenario

import (
	"math"
	"math/rand"

	"github.com/verdantio/cropsense/pkg/agro"
)

// Scenario transforms a sensor value while its window is active. progress
// runs from 0 at the window start to 1 at its end.
type Scenario interface {
	// Name identifies the scenario in status output.
	Name() string

	// Applies reports whether the scenario affects the given sensor type.
	Applies(st agro.SensorType) bool

	// Apply transforms the value. Implementations must be pure apart from
	// draws on rng, so a seeded run is reproducible.
	Apply(value float64, st agro.SensorType, progress float64, rng *rand.Rand) float64
}

// SuddenDrop simulates an irrigation failure: moisture decays toward its
// floor along an exponential approach curve, so the first readings drop fast
// and later readings level off.
type SuddenDrop struct {
	// Target is the total drop in moisture points at full progress.
	Target float64
}

func (SuddenDrop) Name() string { return "sudden_drop" }

func (SuddenDrop) Applies(st agro.SensorType) bool { return st == agro.SensorMoisture }

func (s SuddenDrop) Apply(value float64, _ agro.SensorType, progress float64, _ *rand.Rand) float64 {
	drop := s.Target * (1 - math.Exp(-3*progress))
	out := value - drop
	if out < 30 {
		out = 30
	}
	return out
}

// Spike simulates a malfunctioning sensor that intermittently reports wild
// values: with the configured probability, a reading is replaced by a draw
// from one of two out-of-range bands for its sensor type.
type Spike struct {
	// Probability is the chance any single reading is replaced.
	Probability float64

	// Sensor limits the spikes to one sensor type. Empty affects all.
	Sensor agro.SensorType
}

func (Spike) Name() string { return "spike" }

func (s Spike) Applies(st agro.SensorType) bool {
	return s.Sensor == "" || s.Sensor == st
}

// spikeBands holds the low and high replacement bands per sensor type.
var spikeBands = map[agro.SensorType][2][2]float64{
	agro.SensorMoisture:    {{10, 25}, {85, 95}},
	agro.SensorTemperature: {{0, 8}, {38, 45}},
	agro.SensorHumidity:    {{10, 20}, {90, 98}},
}

func (s Spike) Apply(value float64, st agro.SensorType, _ float64, rng *rand.Rand) float64 {
	bands, ok := spikeBands[st]
	if !ok || rng.Float64() >= s.Probability {
		return value
	}
	band := bands[rng.Intn(2)]
	return band[0] + rng.Float64()*(band[1]-band[0])
}

// Drift simulates slow calibration drift on a single sensor type: an offset
// that grows linearly with progress, in the configured direction.
type Drift struct {
	// Amount is the full offset at the end of the window.
	Amount float64

	// Downward inverts the drift direction.
	Downward bool

	// Sensor is the one sensor type the drift affects.
	Sensor agro.SensorType
}

func (Drift) Name() string { return "drift" }

func (d Drift) Applies(st agro.SensorType) bool { return d.Sensor == st }

func (d Drift) Apply(value float64, _ agro.SensorType, progress float64, _ *rand.Rand) float64 {
	offset := d.Amount * progress
	if d.Downward {
		return value - offset
	}
	return value + offset
}
