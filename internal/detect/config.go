package detect

import (
	"fmt"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// DetectConfig holds configuration for the Detect module.
type DetectConfig struct {
	// Isolation forest hyperparameters.
	Trees           int     `mapstructure:"trees"`
	Contamination   float64 `mapstructure:"contamination"`   // Expected anomaly fraction (0-0.5)
	SubsampleSize   int     `mapstructure:"subsample_size"`  // Rows per tree
	Seed            int64   `mapstructure:"seed"`            // RNG seed, fixed for reproducible models
	MinTrainSamples int     `mapstructure:"min_train_samples"`

	// Training data selection and model persistence.
	TrainLookback time.Duration `mapstructure:"train_lookback"`
	ModelPath     string        `mapstructure:"model_path"`

	// Housekeeping.
	AnomalyRetention    time.Duration `mapstructure:"anomaly_retention"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`

	// Per-sensor rule thresholds. Missing sensor types fall back to the
	// stock thresholds.
	Thresholds map[agro.SensorType]agro.Thresholds `mapstructure:"thresholds"`
}

// DefaultConfig returns sensible defaults for the Detect module.
func DefaultConfig() DetectConfig {
	return DetectConfig{
		Trees:               100,
		Contamination:       0.1,
		SubsampleSize:       256,
		Seed:                42,
		MinTrainSamples:     50,
		TrainLookback:       7 * 24 * time.Hour,
		ModelPath:           "./data/models/detector.json",
		AnomalyRetention:    30 * 24 * time.Hour,
		MaintenanceInterval: 1 * time.Hour,
		Thresholds:          agro.DefaultThresholds(),
	}
}

// Validate checks the hyperparameters for values the trainer cannot work with.
func (c DetectConfig) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", c.Contamination)
	}
	if c.SubsampleSize <= 1 {
		return fmt.Errorf("subsample_size must be greater than 1, got %d", c.SubsampleSize)
	}
	if c.MinTrainSamples < 2 {
		return fmt.Errorf("min_train_samples must be at least 2, got %d", c.MinTrainSamples)
	}
	for st, th := range c.Thresholds {
		if !agro.ValidSensorType(st) {
			return fmt.Errorf("thresholds: unknown sensor type %q", st)
		}
		if th.CriticalLow >= th.CriticalHigh {
			return fmt.Errorf("thresholds[%s]: critical_low %v must be below critical_high %v",
				st, th.CriticalLow, th.CriticalHigh)
		}
	}
	return nil
}

// thresholdsFor returns the configured thresholds for a sensor type, falling
// back to the stock values when the config omits the type.
func (c DetectConfig) thresholdsFor(st agro.SensorType) (agro.Thresholds, bool) {
	if th, ok := c.Thresholds[st]; ok {
		return th, true
	}
	th, ok := agro.DefaultThresholds()[st]
	return th, ok
}
