package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

func TestHandleListAnomalies_Empty(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/anomalies", http.NoBody)
	w := httptest.NewRecorder()

	m.handleListAnomalies(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got []agro.AnomalyEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty array, got %d items", len(got))
	}
}

func TestHandleListAnomalies_SeverityFilter(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = m.store.InsertAnomaly(ctx, testAnomaly("a-1", "plot-1", agro.SeverityHigh, now))
	_ = m.store.InsertAnomaly(ctx, testAnomaly("a-2", "plot-1", agro.SeverityLow, now))

	req := httptest.NewRequest(http.MethodGet, "/anomalies?severity=high", http.NoBody)
	w := httptest.NewRecorder()
	m.handleListAnomalies(w, req)

	var got []agro.AnomalyEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a-1" {
		t.Errorf("severity filter returned %v", got)
	}
}

func TestHandleRecentAnomalies_BadHours(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/anomalies/recent?hours=-3", http.NoBody)
	w := httptest.NewRecorder()
	m.handleRecentAnomalies(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandlePlotAnomalies(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = m.store.InsertAnomaly(ctx, testAnomaly("a-1", "plot-7", agro.SeverityHigh, now))

	req := httptest.NewRequest(http.MethodGet, "/anomalies/plot/plot-7", http.NoBody)
	req.SetPathValue("plot_id", "plot-7")
	w := httptest.NewRecorder()
	m.handlePlotAnomalies(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got []agro.AnomalyEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].PlotID != "plot-7" {
		t.Errorf("got %v", got)
	}
}

func TestHandleAcknowledge_NotFound(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodPost, "/anomalies/missing/ack", http.NoBody)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	m.handleAcknowledge(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleEvaluate(t *testing.T) {
	m := newTestModule(t)

	body := `{"plot_id":"plot-1","sensor_type":"moisture","value":20}`
	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	m.handleEvaluate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var v agro.Verdict
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !v.IsAnomaly || v.AnomalyType != agro.AnomalyIrrigationFailure {
		t.Errorf("verdict = %+v, want irrigation failure", v)
	}

	// Ad-hoc evaluation must not record anything.
	anomalies, _ := m.Anomalies(context.Background(), "plot-1")
	if len(anomalies) != 0 {
		t.Errorf("evaluate endpoint recorded %d anomalies", len(anomalies))
	}
}

func TestHandleEvaluate_Invalid(t *testing.T) {
	m := newTestModule(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing plot", `{"sensor_type":"moisture","value":20}`},
		{"unknown sensor type", `{"plot_id":"p","sensor_type":"ph","value":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			m.handleEvaluate(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleTrain_NoTelemetry(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodPost, "/train", http.NoBody)
	w := httptest.NewRecorder()
	m.handleTrain(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHandleStatus(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	w := httptest.NewRecorder()
	m.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var status map[string]any
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if trained, ok := status["model_trained"].(bool); !ok || trained {
		t.Errorf("model_trained = %v, want false", status["model_trained"])
	}
}

func TestHandleCatalog(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog", http.NoBody)
	w := httptest.NewRecorder()
	m.handleCatalog(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var catalog map[agro.AnomalyType]agro.AnomalyInfo
	if err := json.NewDecoder(w.Body).Decode(&catalog); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(catalog) != 7 {
		t.Errorf("catalog has %d entries, want 7", len(catalog))
	}
}
