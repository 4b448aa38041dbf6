// Package testutil provides fixture builders shared across package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdantio/cropsense/pkg/agro"
)

// NewFarm returns a FarmProfile with sensible defaults, suitable for test
// fixtures. Override individual fields through options as needed.
func NewFarm(opts ...func(*agro.FarmProfile)) agro.FarmProfile {
	f := agro.FarmProfile{
		ID:        uuid.New().String(),
		Name:      "Test Farm",
		Owner:     "tester",
		Location:  "Test Valley",
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WithFarmName sets the farm name.
func WithFarmName(name string) func(*agro.FarmProfile) {
	return func(f *agro.FarmProfile) { f.Name = name }
}

// WithOwner sets the farm owner.
func WithOwner(owner string) func(*agro.FarmProfile) {
	return func(f *agro.FarmProfile) { f.Owner = owner }
}

// NewPlot returns a FieldPlot with sensible defaults for the given farm.
func NewPlot(farmID string, opts ...func(*agro.FieldPlot)) agro.FieldPlot {
	p := agro.FieldPlot{
		ID:           uuid.New().String(),
		FarmID:       farmID,
		Name:         "Test Plot",
		Crop:         "maize",
		AreaHectares: 2.5,
		CreatedAt:    time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithPlotName sets the plot name.
func WithPlotName(name string) func(*agro.FieldPlot) {
	return func(p *agro.FieldPlot) { p.Name = name }
}

// WithCrop sets the plot crop.
func WithCrop(crop string) func(*agro.FieldPlot) {
	return func(p *agro.FieldPlot) { p.Crop = crop }
}

// NewReading returns a SensorReading with sensible defaults for the given
// plot: a mid-range moisture value stamped now.
func NewReading(plotID string, opts ...func(*agro.SensorReading)) agro.SensorReading {
	r := agro.SensorReading{
		PlotID:     plotID,
		SensorType: agro.SensorMoisture,
		Value:      55,
		Timestamp:  time.Now().UTC(),
		Source:     "sensor",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithSensorType sets the reading's sensor type.
func WithSensorType(st agro.SensorType) func(*agro.SensorReading) {
	return func(r *agro.SensorReading) { r.SensorType = st }
}

// WithValue sets the reading's value.
func WithValue(v float64) func(*agro.SensorReading) {
	return func(r *agro.SensorReading) { r.Value = v }
}

// WithTimestamp sets the reading's timestamp.
func WithTimestamp(ts time.Time) func(*agro.SensorReading) {
	return func(r *agro.SensorReading) { r.Timestamp = ts }
}

// WithSource sets the reading's source.
func WithSource(source string) func(*agro.SensorReading) {
	return func(r *agro.SensorReading) { r.Source = source }
}

// ReadingSeries generates a run of readings for one plot and sensor type at
// a fixed interval, oldest first, with values cycling around base.
func ReadingSeries(plotID string, st agro.SensorType, base float64, n int, start time.Time, step time.Duration) []agro.SensorReading {
	out := make([]agro.SensorReading, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, agro.SensorReading{
			PlotID:     plotID,
			SensorType: st,
			Value:      base + float64(i%5),
			Timestamp:  start.Add(time.Duration(i) * step).UTC(),
			Source:     "sensor",
		})
	}
	return out
}
