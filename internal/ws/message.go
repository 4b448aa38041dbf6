package ws

import (
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageReadingIngested MessageType = "reading.ingested"
	MessageAnomalyDetected MessageType = "anomaly.detected"
	MessageModelTrained    MessageType = "model.trained"
	MessageStreamError     MessageType = "stream.error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	PlotID    string      `json:"plot_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// ReadingData is the payload for reading.ingested messages.
type ReadingData struct {
	Reading agro.SensorReading `json:"reading"`
}

// AnomalyData is the payload for anomaly.detected messages.
type AnomalyData struct {
	Anomaly agro.AnomalyEvent `json:"anomaly"`
}

// TrainedData is the payload for model.trained messages.
type TrainedData struct {
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trained_at"`
}

// StreamErrorData is the payload for stream.error messages.
type StreamErrorData struct {
	Error string `json:"error"`
}
