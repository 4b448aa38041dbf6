package field

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
	"github.com/verdantio/cropsense/pkg/roles"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/farms", Handler: m.handleCreateFarm},
		{Method: "GET", Path: "/farms", Handler: m.handleListFarms},
		{Method: "GET", Path: "/farms/{id}", Handler: m.handleGetFarm},
		{Method: "DELETE", Path: "/farms/{id}", Handler: m.handleDeleteFarm},
		{Method: "POST", Path: "/plots", Handler: m.handleCreatePlot},
		{Method: "GET", Path: "/plots", Handler: m.handleListPlots},
		{Method: "GET", Path: "/plots/{id}", Handler: m.handleGetPlot},
		{Method: "DELETE", Path: "/plots/{id}", Handler: m.handleDeletePlot},
		{Method: "GET", Path: "/plots/{id}/summary", Handler: m.handlePlotSummary},
		{Method: "GET", Path: "/plots/{id}/readings", Handler: m.handlePlotReadings},
		{Method: "POST", Path: "/readings", Handler: m.handleIngestReading},
		{Method: "POST", Path: "/readings/bulk", Handler: m.handleIngestBulk},
		{Method: "GET", Path: "/readings", Handler: m.handleQueryReadings},
	}
}

// -- Farms --

func (m *Module) handleCreateFarm(w http.ResponseWriter, r *http.Request) {
	var farm agro.FarmProfile
	if err := json.NewDecoder(r.Body).Decode(&farm); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if farm.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if farm.ID == "" {
		farm.ID = uuid.NewString()
	}
	farm.CreatedAt = time.Now().UTC()

	if err := m.store.CreateFarm(r.Context(), &farm); err != nil {
		m.logger.Warn("failed to create farm", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create farm")
		return
	}
	writeJSON(w, http.StatusCreated, farm)
}

func (m *Module) handleListFarms(w http.ResponseWriter, r *http.Request) {
	farms, err := m.store.ListFarms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list farms")
		return
	}
	if farms == nil {
		farms = []agro.FarmProfile{}
	}
	writeJSON(w, http.StatusOK, farms)
}

func (m *Module) handleGetFarm(w http.ResponseWriter, r *http.Request) {
	farm, err := m.store.GetFarm(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get farm")
		return
	}
	if farm == nil {
		writeError(w, http.StatusNotFound, "farm not found")
		return
	}
	writeJSON(w, http.StatusOK, farm)
}

func (m *Module) handleDeleteFarm(w http.ResponseWriter, r *http.Request) {
	err := m.store.DeleteFarm(r.Context(), r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "farm not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete farm")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Plots --

func (m *Module) handleCreatePlot(w http.ResponseWriter, r *http.Request) {
	var plot agro.FieldPlot
	if err := json.NewDecoder(r.Body).Decode(&plot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if plot.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if plot.FarmID == "" {
		writeError(w, http.StatusBadRequest, "farm_id is required")
		return
	}
	farm, err := m.store.GetFarm(r.Context(), plot.FarmID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify farm")
		return
	}
	if farm == nil {
		writeError(w, http.StatusNotFound, "farm not found")
		return
	}
	if plot.ID == "" {
		plot.ID = uuid.NewString()
	}
	plot.CreatedAt = time.Now().UTC()

	if err := m.store.CreatePlot(r.Context(), &plot); err != nil {
		m.logger.Warn("failed to create plot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create plot")
		return
	}
	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:   TopicPlotCreated,
			Source:  "field",
			Payload: plot,
		})
	}
	writeJSON(w, http.StatusCreated, plot)
}

func (m *Module) handleListPlots(w http.ResponseWriter, r *http.Request) {
	plots, err := m.store.ListPlots(r.Context(), r.URL.Query().Get("farm_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list plots")
		return
	}
	if plots == nil {
		plots = []agro.FieldPlot{}
	}
	writeJSON(w, http.StatusOK, plots)
}

func (m *Module) handleGetPlot(w http.ResponseWriter, r *http.Request) {
	plot, err := m.store.GetPlot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get plot")
		return
	}
	if plot == nil {
		writeError(w, http.StatusNotFound, "plot not found")
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (m *Module) handleDeletePlot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := m.store.DeletePlot(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "plot not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete plot")
		return
	}
	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:   TopicPlotDeleted,
			Source:  "field",
			Payload: id,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) handlePlotSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	plot, err := m.store.GetPlot(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get plot")
		return
	}
	if plot == nil {
		writeError(w, http.StatusNotFound, "plot not found")
		return
	}
	summary, err := m.store.PlotSummary(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize plot")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (m *Module) handlePlotReadings(w http.ResponseWriter, r *http.Request) {
	q, ok := parseReadingQuery(w, r)
	if !ok {
		return
	}
	q.PlotID = r.PathValue("id")
	m.writeReadings(w, r, q)
}

// -- Readings --

func (m *Module) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	var reading agro.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ok := m.requirePlot(w, r, reading.PlotID); !ok {
		return
	}
	if err := m.Ingest(r.Context(), &reading); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (m *Module) handleIngestBulk(w http.ResponseWriter, r *http.Request) {
	var readings []agro.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	seen := make(map[string]bool)
	for _, reading := range readings {
		if reading.PlotID == "" || seen[reading.PlotID] {
			continue
		}
		if ok := m.requirePlot(w, r, reading.PlotID); !ok {
			return
		}
		seen[reading.PlotID] = true
	}
	if err := m.IngestBatch(r.Context(), readings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"ingested": len(readings)})
}

func (m *Module) handleQueryReadings(w http.ResponseWriter, r *http.Request) {
	q, ok := parseReadingQuery(w, r)
	if !ok {
		return
	}
	q.PlotID = r.URL.Query().Get("plot_id")
	m.writeReadings(w, r, q)
}

func (m *Module) writeReadings(w http.ResponseWriter, r *http.Request, q roles.ReadingQuery) {
	readings, err := m.store.QueryReadings(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query readings")
		return
	}
	if readings == nil {
		readings = []agro.SensorReading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

// requirePlot writes a 404 and returns false when the plot does not exist.
func (m *Module) requirePlot(w http.ResponseWriter, r *http.Request, plotID string) bool {
	if plotID == "" {
		writeError(w, http.StatusBadRequest, "plot_id is required")
		return false
	}
	plot, err := m.store.GetPlot(r.Context(), plotID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify plot")
		return false
	}
	if plot == nil {
		writeError(w, http.StatusNotFound, "plot "+plotID+" not found")
		return false
	}
	return true
}

// parseReadingQuery reads the shared sensor_type, since, and limit query
// parameters. Writes a 400 and returns false on invalid input.
func parseReadingQuery(w http.ResponseWriter, r *http.Request) (roles.ReadingQuery, bool) {
	var q roles.ReadingQuery
	if st := r.URL.Query().Get("sensor_type"); st != "" {
		if !agro.ValidSensorType(agro.SensorType(st)) {
			writeError(w, http.StatusBadRequest, "unknown sensor_type")
			return q, false
		}
		q.SensorType = agro.SensorType(st)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return q, false
		}
		q.Since = t
	}
	q.Limit = parseLimit(r, 500)
	return q, true
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
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 5000 {
			return n
		}
	}
	return defaultLimit
}
