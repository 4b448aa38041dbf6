package detect

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// DetectStore provides database access for the Detect module.
type DetectStore struct {
	db *sql.DB
}

// NewDetectStore creates a new DetectStore backed by the given database.
func NewDetectStore(db *sql.DB) *DetectStore {
	return &DetectStore{db: db}
}

// -- Anomalies --

// InsertAnomaly inserts a new anomaly record.
func (s *DetectStore) InsertAnomaly(ctx context.Context, a *agro.AnomalyEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detect_anomalies (
			id, plot_id, sensor_type, value, anomaly_type, severity,
			confidence, score, method, description, detected_at, acknowledged_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PlotID, a.SensorType, a.Value, a.AnomalyType, a.Severity,
		a.Confidence, a.Score, a.Method, a.Description, a.DetectedAt, a.AcknowledgedAt,
	)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

// ListAnomalies returns anomalies, optionally filtered by plot.
// Pass empty plotID to list all. Results are ordered by detected_at descending.
func (s *DetectStore) ListAnomalies(ctx context.Context, plotID string, limit int) ([]agro.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if plotID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, plot_id, sensor_type, value, anomaly_type, severity,
				confidence, score, method, description, detected_at, acknowledged_at
			FROM detect_anomalies ORDER BY detected_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, plot_id, sensor_type, value, anomaly_type, severity,
				confidence, score, method, description, detected_at, acknowledged_at
			FROM detect_anomalies WHERE plot_id = ? ORDER BY detected_at DESC LIMIT ?`,
			plotID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()
	return scanAnomalies(rows)
}

// RecentAnomalies returns anomalies detected at or after since, newest first.
func (s *DetectStore) RecentAnomalies(ctx context.Context, since time.Time, limit int) ([]agro.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plot_id, sensor_type, value, anomaly_type, severity,
			confidence, score, method, description, detected_at, acknowledged_at
		FROM detect_anomalies WHERE detected_at >= ? ORDER BY detected_at DESC LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent anomalies: %w", err)
	}
	defer rows.Close()
	return scanAnomalies(rows)
}

// AnomaliesBySeverity returns anomalies of one severity, newest first.
func (s *DetectStore) AnomaliesBySeverity(ctx context.Context, severity agro.Severity, limit int) ([]agro.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plot_id, sensor_type, value, anomaly_type, severity,
			confidence, score, method, description, detected_at, acknowledged_at
		FROM detect_anomalies WHERE severity = ? ORDER BY detected_at DESC LIMIT ?`,
		severity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("anomalies by severity: %w", err)
	}
	defer rows.Close()
	return scanAnomalies(rows)
}

// AcknowledgeAnomaly marks an anomaly as acknowledged. Returns sql.ErrNoRows
// when no anomaly has the given id.
func (s *DetectStore) AcknowledgeAnomaly(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE detect_anomalies SET acknowledged_at = ? WHERE id = ?`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge anomaly: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledge anomaly: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteOldAnomalies deletes acknowledged anomalies older than the given time.
// Returns the number of rows deleted.
func (s *DetectStore) DeleteOldAnomalies(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM detect_anomalies WHERE acknowledged_at IS NOT NULL AND acknowledged_at < ?`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old anomalies: %w", err)
	}
	return result.RowsAffected()
}

func scanAnomalies(rows *sql.Rows) ([]agro.AnomalyEvent, error) {
	var anomalies []agro.AnomalyEvent
	for rows.Next() {
		var a agro.AnomalyEvent
		var score sql.NullFloat64
		var acked sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.PlotID, &a.SensorType, &a.Value, &a.AnomalyType, &a.Severity,
			&a.Confidence, &score, &a.Method, &a.Description, &a.DetectedAt, &acked,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly row: %w", err)
		}
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		if acked.Valid {
			a.AcknowledgedAt = &acked.Time
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// -- Recommendations --

// InsertRecommendation inserts a remediation recommendation.
func (s *DetectStore) InsertRecommendation(ctx context.Context, rec *agro.Recommendation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detect_recommendations (id, anomaly_id, plot_id, action, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AnomalyID, rec.PlotID, rec.Action, rec.Confidence, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// ListRecommendations returns recommendations, optionally filtered by plot,
// newest first.
func (s *DetectStore) ListRecommendations(ctx context.Context, plotID string, limit int) ([]agro.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if plotID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, anomaly_id, plot_id, action, confidence, created_at
			FROM detect_recommendations ORDER BY created_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, anomaly_id, plot_id, action, confidence, created_at
			FROM detect_recommendations WHERE plot_id = ? ORDER BY created_at DESC LIMIT ?`,
			plotID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()
	return scanRecommendations(rows)
}

// HighPriorityRecommendations returns recommendations at or above the given
// confidence, highest confidence first.
func (s *DetectStore) HighPriorityRecommendations(ctx context.Context, minConfidence float64, limit int) ([]agro.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, anomaly_id, plot_id, action, confidence, created_at
		FROM detect_recommendations WHERE confidence >= ?
		ORDER BY confidence DESC, created_at DESC LIMIT ?`,
		minConfidence, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("high priority recommendations: %w", err)
	}
	defer rows.Close()
	return scanRecommendations(rows)
}

// DeleteOldRecommendations deletes recommendations older than the given time.
func (s *DetectStore) DeleteOldRecommendations(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM detect_recommendations WHERE created_at < ?`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old recommendations: %w", err)
	}
	return result.RowsAffected()
}

func scanRecommendations(rows *sql.Rows) ([]agro.Recommendation, error) {
	var recs []agro.Recommendation
	for rows.Next() {
		var rec agro.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.AnomalyID, &rec.PlotID, &rec.Action, &rec.Confidence, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// -- Training history --

// InsertTraining records the outcome of a training run.
func (s *DetectStore) InsertTraining(ctx context.Context, ts *agro.TrainSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detect_trainings (
			samples, features, anomalies_flagged, anomaly_rate,
			score_mean, score_std, trained_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.Samples, ts.Features, ts.AnomaliesFlagged, ts.AnomalyRate,
		ts.ScoreMean, ts.ScoreStd, ts.TrainedAt,
	)
	if err != nil {
		return fmt.Errorf("insert training: %w", err)
	}
	return nil
}

// LatestTraining returns the most recent training run, or nil when the model
// has never been trained.
func (s *DetectStore) LatestTraining(ctx context.Context) (*agro.TrainSummary, error) {
	var ts agro.TrainSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT samples, features, anomalies_flagged, anomaly_rate,
			score_mean, score_std, trained_at
		FROM detect_trainings ORDER BY trained_at DESC LIMIT 1`,
	).Scan(
		&ts.Samples, &ts.Features, &ts.AnomaliesFlagged, &ts.AnomalyRate,
		&ts.ScoreMean, &ts.ScoreStd, &ts.TrainedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest training: %w", err)
	}
	return &ts, nil
}
