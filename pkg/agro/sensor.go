// Package agro defines the public domain types shared by CropSense modules:
// sensor readings, field plots, detection verdicts, and the anomaly catalog.
package agro

import "time"

// SensorType identifies the kind of measurement a reading carries.
type SensorType string

const (
	SensorMoisture    SensorType = "moisture"    // Volumetric soil moisture, percent
	SensorTemperature SensorType = "temperature" // Soil temperature, degrees Celsius
	SensorHumidity    SensorType = "humidity"    // Ambient relative humidity, percent
)

// SensorTypes lists all supported sensor types.
func SensorTypes() []SensorType {
	return []SensorType{SensorMoisture, SensorTemperature, SensorHumidity}
}

// ValidSensorType reports whether s names a supported sensor type.
func ValidSensorType(s SensorType) bool {
	switch s {
	case SensorMoisture, SensorTemperature, SensorHumidity:
		return true
	}
	return false
}

// SensorBounds gives the physical range a sensor can report. Values outside
// the range indicate hardware failure, not field conditions.
type SensorBounds struct {
	Min float64
	Max float64
}

// Bounds returns the physical bounds for a sensor type. ok is false for
// unknown sensor types.
func Bounds(s SensorType) (b SensorBounds, ok bool) {
	switch s {
	case SensorMoisture, SensorHumidity:
		return SensorBounds{Min: 0, Max: 100}, true
	case SensorTemperature:
		return SensorBounds{Min: -20, Max: 60}, true
	}
	return SensorBounds{}, false
}

// InBounds reports whether v is physically plausible for sensor type s.
// Unknown sensor types are never in bounds.
func InBounds(s SensorType, v float64) bool {
	b, ok := Bounds(s)
	return ok && v >= b.Min && v <= b.Max
}

// SensorReading is a single timestamped measurement from a plot sensor.
type SensorReading struct {
	ID         int64      `json:"id,omitempty"`
	PlotID     string     `json:"plot_id"`
	SensorType SensorType `json:"sensor_type"`
	Value      float64    `json:"value"`
	Timestamp  time.Time  `json:"timestamp"`
	Source     string     `json:"source,omitempty"` // "sensor", "simulator", "import"
}

// Thresholds holds the per-sensor rule thresholds used by the fallback
// classifier. critical_* bound the actionable range, normal_* the expected
// range, and the change thresholds flag abrupt movement between readings.
type Thresholds struct {
	CriticalLow  float64 `json:"critical_low" mapstructure:"critical_low"`
	CriticalHigh float64 `json:"critical_high" mapstructure:"critical_high"`
	NormalMin    float64 `json:"normal_min" mapstructure:"normal_min"`
	NormalMax    float64 `json:"normal_max" mapstructure:"normal_max"`
	SuddenDrop   float64 `json:"sudden_drop" mapstructure:"sudden_drop"`
	SuddenSpike  float64 `json:"sudden_spike" mapstructure:"sudden_spike"`
}

// DefaultThresholds returns the stock rule thresholds for each sensor type.
func DefaultThresholds() map[SensorType]Thresholds {
	return map[SensorType]Thresholds{
		SensorMoisture: {
			CriticalLow:  35,
			CriticalHigh: 85,
			NormalMin:    45,
			NormalMax:    75,
			SuddenDrop:   10,
			SuddenSpike:  15,
		},
		SensorTemperature: {
			CriticalLow:  10,
			CriticalHigh: 35,
			NormalMin:    18,
			NormalMax:    28,
			SuddenDrop:   5,
			SuddenSpike:  8,
		},
		SensorHumidity: {
			CriticalLow:  30,
			CriticalHigh: 85,
			NormalMin:    45,
			NormalMax:    75,
			SuddenDrop:   15,
			SuddenSpike:  20,
		},
	}
}
