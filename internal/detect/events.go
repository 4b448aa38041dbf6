package detect

// Event topics consumed by the Detect module.
const (
	TopicReadingIngested = "field.reading.ingested"
)

// Event topics published by the Detect module.
const (
	TopicAnomalyDetected = "detect.anomaly.detected"
	TopicModelTrained    = "detect.model.trained"
)
