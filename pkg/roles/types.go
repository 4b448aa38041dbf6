package roles

import (
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// ReadingQuery filters a Readings call. Zero-value fields are ignored.
type ReadingQuery struct {
	PlotID     string          `json:"plot_id,omitempty"`
	SensorType agro.SensorType `json:"sensor_type,omitempty"`
	Since      time.Time       `json:"since,omitempty"`
	Limit      int             `json:"limit,omitempty"`

	// Newest makes Limit keep the most recent readings instead of the
	// earliest. Results are still returned oldest first.
	Newest bool `json:"newest,omitempty"`
}
