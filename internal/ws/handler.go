package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/verdantio/cropsense/internal/detect"
	"github.com/verdantio/cropsense/internal/field"
	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
)

// Handler provides the WebSocket endpoint for live telemetry and anomaly
// updates.
type Handler struct {
	hub    *Hub
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to sensor events.
func NewHandler(bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/stream", h.handleStream)
}

// handleStream upgrades the connection to WebSocket and streams readings and
// anomalies as they arrive.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	// Client disconnected -- stop write pump and unregister.
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents subscribes to field and detect events and forwards them
// to all connected WebSocket clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(field.TopicReadingIngested, func(_ context.Context, event plugin.Event) {
		reading, ok := event.Payload.(agro.SensorReading)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageReadingIngested,
			PlotID:    reading.PlotID,
			Timestamp: event.Timestamp,
			Data: ReadingData{
				Reading: reading,
			},
		})
	})

	h.bus.Subscribe(detect.TopicAnomalyDetected, func(_ context.Context, event plugin.Event) {
		anomaly, ok := event.Payload.(agro.AnomalyEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageAnomalyDetected,
			PlotID:    anomaly.PlotID,
			Timestamp: event.Timestamp,
			Data: AnomalyData{
				Anomaly: anomaly,
			},
		})
	})

	h.bus.Subscribe(detect.TopicModelTrained, func(_ context.Context, event plugin.Event) {
		summary, ok := event.Payload.(agro.TrainSummary)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageModelTrained,
			Timestamp: event.Timestamp,
			Data: TrainedData{
				Samples:   summary.Samples,
				TrainedAt: summary.TrainedAt,
			},
		})
	})

	h.logger.Info("subscribed to field and detect events for WebSocket broadcasting")
}

// BroadcastError sends an error message to all connected clients.
func (h *Handler) BroadcastError(plotID, errMsg string) {
	h.hub.Broadcast(Message{
		Type:      MessageStreamError,
		PlotID:    plotID,
		Timestamp: time.Now(),
		Data: StreamErrorData{
			Error: errMsg,
		},
	})
}
