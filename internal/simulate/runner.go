package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verdantio/cropsense/internal/scenario"
	"github.com/verdantio/cropsense/pkg/agro"
)

// bulkChunkSize keeps backfill batches under the server's bulk ingest limit.
const bulkChunkSize = 500

// RunnerConfig controls a simulation run against a CropSense server.
type RunnerConfig struct {
	ServerURL string
	FarmName  string
	Owner     string
	Plots     []PlotSpec
	Seed      int64
	Interval  time.Duration
	Backfill  time.Duration
	Preset    string
	RateLimit rate.Limit
}

// PlotSpec names a plot to create and the crop growing on it.
type PlotSpec struct {
	Name string
	Crop string
}

// Runner bootstraps a farm over the HTTP API and streams simulated readings
// into it, optionally distorted by a scenario preset.
type Runner struct {
	cfg       RunnerConfig
	gen       *Generator
	scenarios *scenario.Manager
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	plotIDs   []string
	now       func() time.Time
}

// NewRunner creates a Runner. The scenario preset, when set, is scheduled
// relative to the current time.
func NewRunner(cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if cfg.FarmName == "" {
		cfg.FarmName = "Simulated Farm"
	}
	if cfg.Owner == "" {
		cfg.Owner = "fieldsim"
	}
	if len(cfg.Plots) == 0 {
		cfg.Plots = []PlotSpec{{Name: "Plot A", Crop: "maize"}}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}

	r := &Runner{
		cfg:       cfg,
		gen:       NewGenerator(cfg.Seed),
		scenarios: scenario.NewManager(cfg.Seed),
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(cfg.RateLimit, 1),
		logger:    logger,
		now:       time.Now,
	}
	if cfg.Preset != "" {
		if err := scenario.ApplyPreset(r.scenarios, cfg.Preset, r.now()); err != nil {
			return nil, err
		}
		logger.Info("scenario preset scheduled", zap.String("preset", cfg.Preset))
	}
	return r, nil
}

// Run bootstraps the farm, backfills history, and then streams one reading
// per plot and sensor type every interval until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if r.cfg.Backfill > 0 {
		if err := r.seedHistory(ctx); err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.emit(ctx, r.now().UTC()); err != nil {
				r.logger.Warn("failed to emit readings", zap.Error(err))
			}
		}
	}
}

// Bootstrap creates the farm and its plots over the API.
func (r *Runner) Bootstrap(ctx context.Context) error {
	var farm agro.FarmProfile
	err := r.postJSON(ctx, "/api/v1/field/farms", agro.FarmProfile{
		Name:     r.cfg.FarmName,
		Owner:    r.cfg.Owner,
		Location: "simulated",
	}, &farm)
	if err != nil {
		return fmt.Errorf("create farm: %w", err)
	}
	r.logger.Info("farm created", zap.String("farm_id", farm.ID), zap.String("name", farm.Name))

	r.plotIDs = r.plotIDs[:0]
	for _, spec := range r.cfg.Plots {
		var plot agro.FieldPlot
		err := r.postJSON(ctx, "/api/v1/field/plots", agro.FieldPlot{
			FarmID: farm.ID,
			Name:   spec.Name,
			Crop:   spec.Crop,
		}, &plot)
		if err != nil {
			return fmt.Errorf("create plot %q: %w", spec.Name, err)
		}
		r.plotIDs = append(r.plotIDs, plot.ID)
		r.logger.Info("plot created", zap.String("plot_id", plot.ID), zap.String("name", plot.Name))
	}
	return nil
}

// seedHistory bulk-ingests baseline readings covering the backfill window so
// the detector has training data from the first minute.
func (r *Runner) seedHistory(ctx context.Context) error {
	end := r.now().UTC()
	start := end.Add(-r.cfg.Backfill)

	total := 0
	for _, plotID := range r.plotIDs {
		readings := r.gen.Backfill(plotID, start, end)
		for len(readings) > 0 {
			chunk := readings
			if len(chunk) > bulkChunkSize {
				chunk = chunk[:bulkChunkSize]
			}
			if err := r.postJSON(ctx, "/api/v1/field/readings/bulk", chunk, nil); err != nil {
				return err
			}
			total += len(chunk)
			readings = readings[len(chunk):]
		}
	}
	r.logger.Info("history backfilled",
		zap.Int("readings", total),
		zap.Duration("window", r.cfg.Backfill),
	)
	return nil
}

// emit posts one reading per plot and sensor type, after running each value
// through the active scenarios.
func (r *Runner) emit(ctx context.Context, ts time.Time) error {
	for _, plotID := range r.plotIDs {
		for _, st := range agro.SensorTypes() {
			reading := r.gen.Reading(plotID, st, ts)
			reading.Value = r.scenarios.Apply(st, reading.Value)
			if err := r.postJSON(ctx, "/api/v1/field/readings", reading, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScenarioStatuses reports the state of all scheduled scenarios.
func (r *Runner) ScenarioStatuses() []scenario.Status {
	return r.scenarios.Statuses()
}

func (r *Runner) postJSON(ctx context.Context, path string, body, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.ServerURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, detail)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
