package agro

import "time"

// AnomalyType classifies what a flagged reading most likely means in the field.
type AnomalyType string

const (
	AnomalyIrrigationFailure AnomalyType = "irrigation_failure"
	AnomalySensorMalfunction AnomalyType = "sensor_malfunction"
	AnomalyHeatStress        AnomalyType = "heat_stress"
	AnomalyColdStress        AnomalyType = "cold_stress"
	AnomalyDryStress         AnomalyType = "dry_stress"
	AnomalyExcessMoisture    AnomalyType = "excess_moisture"
	AnomalySensorAnomaly     AnomalyType = "sensor_anomaly"
)

// Severity ranks how urgently an anomaly needs attention.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Verdict is the outcome of evaluating a single reading.
type Verdict struct {
	IsAnomaly   bool        `json:"is_anomaly"`
	Confidence  float64     `json:"confidence"` // 0..1
	Score       *float64    `json:"anomaly_score,omitempty"`
	AnomalyType AnomalyType `json:"anomaly_type,omitempty"`
	Severity    Severity    `json:"severity,omitempty"`
	Method      string      `json:"method"` // "isolation_forest" or "rules"
	Explanation string      `json:"explanation,omitempty"`
}

// AnomalyEvent is a persisted anomaly: a Verdict tied to the reading that
// produced it.
type AnomalyEvent struct {
	ID             string      `json:"id"`
	PlotID         string      `json:"plot_id"`
	SensorType     SensorType  `json:"sensor_type"`
	Value          float64     `json:"value"`
	AnomalyType    AnomalyType `json:"anomaly_type"`
	Severity       Severity    `json:"severity"`
	Confidence     float64     `json:"confidence"`
	Score          *float64    `json:"anomaly_score,omitempty"`
	Method         string      `json:"method"`
	Description    string      `json:"description"`
	DetectedAt     time.Time   `json:"detected_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
}

// Recommendation is a remediation action attached to an anomaly.
type Recommendation struct {
	ID         string    `json:"id"`
	AnomalyID  string    `json:"anomaly_id"`
	PlotID     string    `json:"plot_id"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnomalyInfo describes an anomaly type: what it means and what to do about it.
type AnomalyInfo struct {
	Type           AnomalyType `json:"type"`
	Description    string      `json:"description"`
	Severity       Severity    `json:"severity"`
	Recommendation string      `json:"recommendation"`
}

// Catalog maps each anomaly type to its description, default severity, and
// recommended action.
func Catalog() map[AnomalyType]AnomalyInfo {
	return map[AnomalyType]AnomalyInfo{
		AnomalyIrrigationFailure: {
			Type:           AnomalyIrrigationFailure,
			Description:    "Soil moisture critically low, irrigation system may have failed",
			Severity:       SeverityHigh,
			Recommendation: "Inspect irrigation lines and emitters; restore water supply to the plot",
		},
		AnomalySensorMalfunction: {
			Type:           AnomalySensorMalfunction,
			Description:    "Reading outside the physically possible range for this sensor",
			Severity:       SeverityHigh,
			Recommendation: "Replace or recalibrate the sensor; discard readings until verified",
		},
		AnomalyHeatStress: {
			Type:           AnomalyHeatStress,
			Description:    "Soil temperature above the crop's tolerance range",
			Severity:       SeverityHigh,
			Recommendation: "Increase irrigation frequency and consider shade cloth during peak hours",
		},
		AnomalyColdStress: {
			Type:           AnomalyColdStress,
			Description:    "Soil temperature below the crop's tolerance range",
			Severity:       SeverityMedium,
			Recommendation: "Deploy row covers or frost protection; delay irrigation until temperatures recover",
		},
		AnomalyDryStress: {
			Type:           AnomalyDryStress,
			Description:    "Ambient humidity critically low, elevated transpiration stress",
			Severity:       SeverityMedium,
			Recommendation: "Increase irrigation and consider misting to raise local humidity",
		},
		AnomalyExcessMoisture: {
			Type:           AnomalyExcessMoisture,
			Description:    "Moisture or humidity above safe levels, risk of root rot and fungal disease",
			Severity:       SeverityMedium,
			Recommendation: "Pause irrigation and verify drainage; scout for early fungal symptoms",
		},
		AnomalySensorAnomaly: {
			Type:           AnomalySensorAnomaly,
			Description:    "Statistically unusual reading without a matching rule pattern",
			Severity:       SeverityLow,
			Recommendation: "Monitor the plot; verify against neighboring sensors before acting",
		},
	}
}

// RecommendedAction returns the catalog action for an anomaly type, or a
// generic instruction for types not in the catalog.
func RecommendedAction(t AnomalyType) string {
	if info, ok := Catalog()[t]; ok {
		return info.Recommendation
	}
	return "Investigate the flagged reading and verify sensor placement"
}
