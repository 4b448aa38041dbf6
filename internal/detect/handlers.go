package detect

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/anomalies", Handler: m.handleListAnomalies},
		{Method: "GET", Path: "/anomalies/recent", Handler: m.handleRecentAnomalies},
		{Method: "GET", Path: "/anomalies/plot/{plot_id}", Handler: m.handlePlotAnomalies},
		{Method: "POST", Path: "/anomalies/{id}/ack", Handler: m.handleAcknowledge},
		{Method: "GET", Path: "/recommendations", Handler: m.handleListRecommendations},
		{Method: "GET", Path: "/recommendations/priority", Handler: m.handlePriorityRecommendations},
		{Method: "GET", Path: "/catalog", Handler: m.handleCatalog},
		{Method: "POST", Path: "/evaluate", Handler: m.handleEvaluate},
		{Method: "POST", Path: "/train", Handler: m.handleTrain},
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
	}
}

// handleListAnomalies returns recorded anomalies, optionally filtered by
// severity via the ?severity query parameter.
func (m *Module) handleListAnomalies(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	var (
		anomalies []agro.AnomalyEvent
		err       error
	)
	if sev := r.URL.Query().Get("severity"); sev != "" {
		anomalies, err = m.store.AnomaliesBySeverity(r.Context(), agro.Severity(sev), limit)
	} else {
		anomalies, err = m.store.ListAnomalies(r.Context(), "", limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []agro.AnomalyEvent{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// handleRecentAnomalies returns anomalies from the last 24 hours, or a
// custom window via ?hours.
func (m *Module) handleRecentAnomalies(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if s := r.URL.Query().Get("hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 24*90 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer up to 2160")
			return
		}
		hours = n
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	anomalies, err := m.store.RecentAnomalies(r.Context(), since, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recent anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []agro.AnomalyEvent{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// handlePlotAnomalies returns anomalies for a specific plot.
func (m *Module) handlePlotAnomalies(w http.ResponseWriter, r *http.Request) {
	plotID := r.PathValue("plot_id")
	if plotID == "" {
		writeError(w, http.StatusBadRequest, "plot_id is required")
		return
	}
	anomalies, err := m.store.ListAnomalies(r.Context(), plotID, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []agro.AnomalyEvent{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// handleAcknowledge marks an anomaly as acknowledged.
func (m *Module) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	err := m.store.AcknowledgeAnomaly(r.Context(), id, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "anomaly not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to acknowledge anomaly")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "acknowledged"})
}

// handleListRecommendations returns remediation recommendations, optionally
// filtered by plot via ?plot_id.
func (m *Module) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := m.store.ListRecommendations(r.Context(), r.URL.Query().Get("plot_id"), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []agro.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handlePriorityRecommendations returns high-confidence recommendations.
func (m *Module) handlePriorityRecommendations(w http.ResponseWriter, r *http.Request) {
	minConfidence := 0.8
	if s := r.URL.Query().Get("min_confidence"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
			return
		}
		minConfidence = f
	}
	recs, err := m.store.HighPriorityRecommendations(r.Context(), minConfidence, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []agro.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleCatalog returns the anomaly type catalog.
func (m *Module) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, agro.Catalog())
}

// handleEvaluate scores a reading without recording the result. Useful for
// checking what the detector would say about a hypothetical value.
func (m *Module) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var reading agro.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if reading.PlotID == "" {
		writeError(w, http.StatusBadRequest, "plot_id is required")
		return
	}
	if !agro.ValidSensorType(reading.SensorType) {
		writeError(w, http.StatusBadRequest, "sensor_type must be one of moisture, temperature, humidity")
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	writeJSON(w, http.StatusOK, m.evaluate(r.Context(), reading))
}

// handleTrain triggers a training run on readings from the telemetry module.
func (m *Module) handleTrain(w http.ResponseWriter, r *http.Request) {
	summary, err := m.TrainFromTelemetry(r.Context())
	if errors.Is(err, ErrInsufficientData) {
		writeError(w, http.StatusUnprocessableEntity, "not enough readings to train the model")
		return
	}
	if err != nil {
		m.logger.Warn("training failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleStatus reports the detector state and the latest training run.
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"model_trained": m.detector.Trained(),
	}
	if t := m.detector.TrainedAt(); !t.IsZero() {
		status["trained_at"] = t
	}
	if m.store != nil {
		if last, err := m.store.LatestTraining(r.Context()); err == nil && last != nil {
			status["last_training"] = last
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://cropsense.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
