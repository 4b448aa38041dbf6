package scenario

import (
	"fmt"
	"sort"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// ApplyPreset schedules a named scenario bundle on the manager, with windows
// anchored at now. Returns an error for unknown preset names.
func ApplyPreset(m *Manager, name string, now time.Time) error {
	switch name {
	case "irrigation_failure":
		// Failure begins an hour into the run and plays out over two hours.
		m.Schedule(SuddenDrop{Target: 15}, now.Add(1*time.Hour), 2*time.Hour)
	case "sensor_malfunction":
		m.Schedule(Spike{Probability: 0.4}, now.Add(2*time.Hour), 90*time.Minute)
	case "calibration_drift":
		m.Schedule(Drift{Amount: 12, Sensor: agro.SensorTemperature}, now.Add(3*time.Hour), 4*time.Hour)
	case "full_suite":
		m.Schedule(SuddenDrop{Target: 15}, now.Add(1*time.Hour), 2*time.Hour)
		m.Schedule(Spike{Probability: 0.3, Sensor: agro.SensorTemperature}, now.Add(3*time.Hour), 90*time.Minute)
		m.Schedule(Drift{Amount: 15, Sensor: agro.SensorHumidity}, now.Add(5*time.Hour), 4*time.Hour)
	case "quick_test":
		// Compressed variant for checking a pipeline end to end.
		m.Schedule(SuddenDrop{Target: 12}, now.Add(15*time.Minute), 30*time.Minute)
		m.Schedule(Spike{Probability: 0.5}, now.Add(1*time.Hour), 30*time.Minute)
		m.Schedule(Drift{Amount: 10, Sensor: agro.SensorMoisture}, now.Add(90*time.Minute), 30*time.Minute)
	default:
		return fmt.Errorf("unknown preset %q (have %v)", name, PresetNames())
	}
	return nil
}

// PresetNames lists the available preset names, sorted.
func PresetNames() []string {
	names := []string{
		"irrigation_failure",
		"quick_test",
		"sensor_malfunction",
		"calibration_drift",
		"full_suite",
	}
	sort.Strings(names)
	return names
}
