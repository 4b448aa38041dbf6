package detect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/plugin"
	"github.com/verdantio/cropsense/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin           = (*Module)(nil)
	_ plugin.HTTPProvider     = (*Module)(nil)
	_ plugin.HealthChecker    = (*Module)(nil)
	_ plugin.Validator        = (*Module)(nil)
	_ plugin.EventSubscriber  = (*Module)(nil)
	_ roles.DetectionProvider = (*Module)(nil)
)

// Module implements the Detect anomaly detection plugin. It scores incoming
// readings with a trained isolation forest, falls back to threshold rules
// when the model is unavailable, and records anomalies with remediation
// recommendations.
type Module struct {
	logger   *zap.Logger
	cfg      DetectConfig
	store    *DetectStore
	bus      plugin.EventBus
	plugins  plugin.PluginResolver
	detector *Detector
	models   *modelStore

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Detect plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "detect",
		Version:     "0.1.0",
		Description: "Isolation forest and rule-based anomaly detection for field readings",
		Roles:       []string{roles.RoleDetection},
		Required:    false,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal detect config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "detect", migrations()); err != nil {
			return fmt.Errorf("detect migrations: %w", err)
		}
		m.store = NewDetectStore(deps.Store.DB())
	}

	m.bus = deps.Bus
	m.plugins = deps.Plugins
	m.detector = NewDetector(m.cfg)
	m.models = newModelStore(m.cfg.ModelPath)

	// A saved model from a previous run is restored when present. Failure
	// to load is not fatal; the detector starts untrained and the rules
	// carry detection until the next training run.
	if saved, err := m.models.Load(); err != nil {
		m.logger.Warn("failed to load persisted model", zap.Error(err))
	} else if saved != nil {
		m.detector.Restore(saved)
		modelTrainedTimestamp.Set(float64(saved.TrainedAt.Unix()))
		trainSamples.Set(float64(saved.Samples))
		m.logger.Info("restored persisted model",
			zap.Time("trained_at", saved.TrainedAt),
			zap.Int("samples", saved.Samples),
		)
	}

	m.logger.Info("detect module initialized",
		zap.Int("trees", m.cfg.Trees),
		zap.Float64("contamination", m.cfg.Contamination),
		zap.Int("subsample_size", m.cfg.SubsampleSize),
		zap.Int("min_train_samples", m.cfg.MinTrainSamples),
		zap.Duration("train_lookback", m.cfg.TrainLookback),
		zap.Bool("model_loaded", m.detector.Trained()),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startMaintenance()
	m.logger.Info("detect module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("detect module stopped")
	return nil
}

// -- plugin.Validator --

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

// -- plugin.HealthChecker --

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	details := map[string]string{
		"model_trained": fmt.Sprintf("%t", m.detector.Trained()),
	}
	if t := m.detector.TrainedAt(); !t.IsZero() {
		details["trained_at"] = t.Format(time.RFC3339)
	}
	telemetry := "false"
	if m.telemetry() != nil {
		telemetry = "true"
	}
	details["telemetry_available"] = telemetry

	return plugin.HealthStatus{
		Status:  "healthy",
		Details: details,
	}
}

// -- plugin.EventSubscriber --

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: TopicReadingIngested, Handler: m.handleReadingIngested},
	}
}

// handleReadingIngested is the detection pipeline entry point: every stored
// reading is evaluated, and anomalous verdicts are recorded and published.
func (m *Module) handleReadingIngested(ctx context.Context, event plugin.Event) {
	r, ok := event.Payload.(agro.SensorReading)
	if !ok {
		m.logger.Debug("ignored reading event: unexpected payload type",
			zap.String("source", event.Source))
		return
	}
	m.Evaluate(ctx, r)
}

// -- roles.DetectionProvider --

// Evaluate implements roles.DetectionProvider. The verdict comes from the
// threshold rules when one matches, otherwise from the trained model.
// Anomalous verdicts are persisted and announced on the bus.
func (m *Module) Evaluate(ctx context.Context, r agro.SensorReading) agro.Verdict {
	v := m.evaluate(ctx, r)
	evaluationsTotal.WithLabelValues(v.Method).Inc()
	if v.IsAnomaly {
		m.record(ctx, r, v)
	}
	return v
}

// Anomalies implements roles.DetectionProvider.
func (m *Module) Anomalies(ctx context.Context, plotID string) ([]agro.AnomalyEvent, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.ListAnomalies(ctx, plotID, 100)
}

// evaluate scores a reading without side effects. Physically impossible
// values never depend on model availability; inside the physical range the
// trained model decides whether the reading is anomalous, and the threshold
// rules only label the anomaly. Without a trained model the rules decide
// outright.
func (m *Module) evaluate(ctx context.Context, r agro.SensorReading) agro.Verdict {
	if v, bad := malfunction(r); bad {
		return v
	}
	th, haveTh := m.cfg.thresholdsFor(r.SensorType)

	features := featureVector(r, m.history(ctx, r))
	score, anomalous, err := m.detector.Score(features)
	if err != nil {
		// Untrained model: fall back to the rules alone.
		if v, matched := classify(r, th, haveTh); matched {
			return v
		}
		return agro.Verdict{Method: methodRules}
	}

	v := agro.Verdict{
		Score:  &score,
		Method: methodForest,
	}
	if anomalous {
		v.IsAnomaly = true
		v.Confidence = confidence(score)
		if t, sev, why, breached := thresholdBreach(r, th, haveTh); breached {
			v.AnomalyType = t
			v.Severity = sev
			v.Explanation = why
		} else {
			v.AnomalyType = agro.AnomalySensorAnomaly
			v.Severity = agro.SeverityLow
			v.Explanation = fmt.Sprintf("%s reading %.2f is statistically unusual for this plot", r.SensorType, r.Value)
		}
	}
	return v
}

// history returns recent readings for the same plot and sensor, used as the
// chronological context for feature extraction. Missing telemetry is fine;
// the features degrade to single-reading defaults.
func (m *Module) history(ctx context.Context, r agro.SensorReading) []agro.SensorReading {
	tel := m.telemetry()
	if tel == nil {
		return nil
	}
	readings, err := tel.Readings(ctx, roles.ReadingQuery{
		PlotID:     r.PlotID,
		SensorType: r.SensorType,
		Since:      r.Timestamp.Add(-24 * time.Hour),
		Limit:      2 * rollingWindow,
		Newest:     true,
	})
	if err != nil {
		m.logger.Debug("failed to load reading history",
			zap.String("plot_id", r.PlotID),
			zap.Error(err))
		return nil
	}
	return readings
}

// record persists an anomalous verdict together with its recommendation and
// publishes the anomaly on the bus.
func (m *Module) record(ctx context.Context, r agro.SensorReading, v agro.Verdict) {
	desc := v.Explanation
	if info, ok := agro.Catalog()[v.AnomalyType]; ok && desc == "" {
		desc = info.Description
	}

	a := &agro.AnomalyEvent{
		ID:          uuid.NewString(),
		PlotID:      r.PlotID,
		SensorType:  r.SensorType,
		Value:       r.Value,
		AnomalyType: v.AnomalyType,
		Severity:    v.Severity,
		Confidence:  v.Confidence,
		Score:       v.Score,
		Method:      v.Method,
		Description: desc,
		DetectedAt:  time.Now().UTC(),
	}

	m.logger.Info("anomaly detected",
		zap.String("plot_id", r.PlotID),
		zap.String("sensor_type", string(r.SensorType)),
		zap.String("anomaly_type", string(v.AnomalyType)),
		zap.String("severity", string(v.Severity)),
		zap.Float64("value", r.Value),
		zap.Float64("confidence", v.Confidence),
		zap.String("method", v.Method),
	)
	anomaliesTotal.WithLabelValues(string(v.AnomalyType), string(v.Severity)).Inc()

	if m.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := m.store.InsertAnomaly(storeCtx, a); err != nil {
			m.logger.Warn("failed to store anomaly", zap.Error(err))
		}
		rec := &agro.Recommendation{
			ID:         uuid.NewString(),
			AnomalyID:  a.ID,
			PlotID:     r.PlotID,
			Action:     agro.RecommendedAction(v.AnomalyType),
			Confidence: v.Confidence,
			CreatedAt:  a.DetectedAt,
		}
		if err := m.store.InsertRecommendation(storeCtx, rec); err != nil {
			m.logger.Warn("failed to store recommendation", zap.Error(err))
		}
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:   TopicAnomalyDetected,
			Source:  "detect",
			Payload: *a,
		})
	}
}

// -- Training --

// TrainFromTelemetry fetches readings over the configured lookback window
// from the telemetry module and trains a new model on them.
func (m *Module) TrainFromTelemetry(ctx context.Context) (*agro.TrainSummary, error) {
	tel := m.telemetry()
	if tel == nil {
		return nil, fmt.Errorf("no telemetry module available for training data")
	}
	readings, err := tel.Readings(ctx, roles.ReadingQuery{
		Since: time.Now().Add(-m.cfg.TrainLookback),
	})
	if err != nil {
		return nil, fmt.Errorf("load training readings: %w", err)
	}
	return m.Train(ctx, readings)
}

// Train fits a new model on the given readings, persists it, and records the
// training run.
func (m *Module) Train(ctx context.Context, readings []agro.SensorReading) (*agro.TrainSummary, error) {
	summary, err := m.detector.Train(readings)
	if err != nil {
		return nil, err
	}

	if err := m.models.Save(m.detector.snapshot()); err != nil {
		m.logger.Warn("failed to persist model", zap.Error(err))
	}
	if m.store != nil {
		if err := m.store.InsertTraining(ctx, summary); err != nil {
			m.logger.Warn("failed to record training run", zap.Error(err))
		}
	}

	modelTrainedTimestamp.Set(float64(summary.TrainedAt.Unix()))
	trainSamples.Set(float64(summary.Samples))
	m.logger.Info("model trained",
		zap.Int("samples", summary.Samples),
		zap.Int("anomalies_flagged", summary.AnomaliesFlagged),
		zap.Float64("anomaly_rate", summary.AnomalyRate),
	)

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:   TopicModelTrained,
			Source:  "detect",
			Payload: *summary,
		})
	}
	return summary, nil
}

// telemetry resolves the telemetry provider, or nil when no module fills
// the role.
func (m *Module) telemetry() roles.TelemetryProvider {
	if m.plugins == nil {
		return nil
	}
	for _, p := range m.plugins.ResolveByRole(roles.RoleTelemetry) {
		if tel, ok := p.(roles.TelemetryProvider); ok {
			return tel
		}
	}
	return nil
}
