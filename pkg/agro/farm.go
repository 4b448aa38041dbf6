package agro

import "time"

// FarmProfile identifies a farm and its owner.
type FarmProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldPlot is a monitored section of a farm. Sensors report per plot.
type FieldPlot struct {
	ID           string    `json:"id"`
	FarmID       string    `json:"farm_id"`
	Name         string    `json:"name"`
	Crop         string    `json:"crop,omitempty"`
	AreaHectares float64   `json:"area_hectares,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlotSummary aggregates the latest readings for a plot, one entry per
// sensor type.
type PlotSummary struct {
	PlotID   string          `json:"plot_id"`
	Sensors  []SensorSummary `json:"sensors"`
	Readings int             `json:"readings_total"`
}

// SensorSummary is the latest state of one sensor type on a plot.
type SensorSummary struct {
	SensorType SensorType `json:"sensor_type"`
	LastValue  float64    `json:"last_value"`
	LastSeen   time.Time  `json:"last_seen"`
	Count      int        `json:"count"`
}

// TrainSummary reports the outcome of a model training run.
type TrainSummary struct {
	Samples          int       `json:"samples"`
	Features         int       `json:"features"`
	AnomaliesFlagged int       `json:"anomalies_flagged"`
	AnomalyRate      float64   `json:"anomaly_rate"`
	ScoreMean        float64   `json:"score_mean"`
	ScoreStd         float64   `json:"score_std"`
	TrainedAt        time.Time `json:"trained_at"`
}
