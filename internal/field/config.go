package field

import (
	"fmt"
	"time"
)

// FieldConfig holds configuration for the Field telemetry module.
type FieldConfig struct {
	ReadingRetention    time.Duration `mapstructure:"reading_retention"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
	MaxBulkReadings     int           `mapstructure:"max_bulk_readings"`
}

// DefaultConfig returns sensible defaults for the Field module.
func DefaultConfig() FieldConfig {
	return FieldConfig{
		ReadingRetention:    90 * 24 * time.Hour,
		MaintenanceInterval: 1 * time.Hour,
		MaxBulkReadings:     1000,
	}
}

// Validate checks the configuration for unusable values.
func (c FieldConfig) Validate() error {
	if c.ReadingRetention <= 0 {
		return fmt.Errorf("reading_retention must be positive, got %v", c.ReadingRetention)
	}
	if c.MaxBulkReadings <= 0 {
		return fmt.Errorf("max_bulk_readings must be positive, got %d", c.MaxBulkReadings)
	}
	return nil
}
