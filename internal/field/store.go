package field

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
	"github.com/verdantio/cropsense/pkg/roles"
)

// FieldStore provides database access for the Field telemetry module.
type FieldStore struct {
	db *sql.DB
}

// NewFieldStore creates a new FieldStore backed by the given database.
func NewFieldStore(db *sql.DB) *FieldStore {
	return &FieldStore{db: db}
}

// -- Farms --

// CreateFarm inserts a farm profile.
func (s *FieldStore) CreateFarm(ctx context.Context, f *agro.FarmProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO field_farms (id, name, owner, location, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Owner, f.Location, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create farm: %w", err)
	}
	return nil
}

// GetFarm returns a farm by id, or nil when it does not exist.
func (s *FieldStore) GetFarm(ctx context.Context, id string) (*agro.FarmProfile, error) {
	var f agro.FarmProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner, location, created_at FROM field_farms WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.Name, &f.Owner, &f.Location, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get farm: %w", err)
	}
	return &f, nil
}

// ListFarms returns all farms ordered by name.
func (s *FieldStore) ListFarms(ctx context.Context) ([]agro.FarmProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner, location, created_at FROM field_farms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	defer rows.Close()

	var farms []agro.FarmProfile
	for rows.Next() {
		var f agro.FarmProfile
		if err := rows.Scan(&f.ID, &f.Name, &f.Owner, &f.Location, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan farm row: %w", err)
		}
		farms = append(farms, f)
	}
	return farms, rows.Err()
}

// DeleteFarm removes a farm and, through cascading deletes, its plots and
// readings. Returns sql.ErrNoRows when no farm has the given id.
func (s *FieldStore) DeleteFarm(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM field_farms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Plots --

// CreatePlot inserts a field plot.
func (s *FieldStore) CreatePlot(ctx context.Context, p *agro.FieldPlot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO field_plots (id, farm_id, name, crop, area_hectares, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.FarmID, p.Name, p.Crop, p.AreaHectares, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}
	return nil
}

// GetPlot returns a plot by id, or nil when it does not exist.
func (s *FieldStore) GetPlot(ctx context.Context, id string) (*agro.FieldPlot, error) {
	var p agro.FieldPlot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, farm_id, name, crop, area_hectares, created_at
		FROM field_plots WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.FarmID, &p.Name, &p.Crop, &p.AreaHectares, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plot: %w", err)
	}
	return &p, nil
}

// ListPlots returns plots, optionally filtered by farm. Pass empty farmID to
// list all. Ordered by name.
func (s *FieldStore) ListPlots(ctx context.Context, farmID string) ([]agro.FieldPlot, error) {
	var rows *sql.Rows
	var err error
	if farmID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, farm_id, name, crop, area_hectares, created_at
			FROM field_plots ORDER BY name`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, farm_id, name, crop, area_hectares, created_at
			FROM field_plots WHERE farm_id = ? ORDER BY name`,
			farmID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	defer rows.Close()

	var plots []agro.FieldPlot
	for rows.Next() {
		var p agro.FieldPlot
		if err := rows.Scan(&p.ID, &p.FarmID, &p.Name, &p.Crop, &p.AreaHectares, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plot row: %w", err)
		}
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

// DeletePlot removes a plot and its readings. Returns sql.ErrNoRows when no
// plot has the given id.
func (s *FieldStore) DeletePlot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM field_plots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plot: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Readings --

// InsertReading stores a reading and fills in its generated id.
func (s *FieldStore) InsertReading(ctx context.Context, r *agro.SensorReading) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO field_readings (plot_id, sensor_type, value, timestamp, source)
		VALUES (?, ?, ?, ?, ?)`,
		r.PlotID, r.SensorType, r.Value, r.Timestamp, r.Source,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	r.ID = id
	return nil
}

// InsertReadings stores a batch of readings in one transaction, filling in
// generated ids. The batch is all-or-nothing.
func (s *FieldStore) InsertReadings(ctx context.Context, readings []agro.SensorReading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO field_readings (plot_id, sensor_type, value, timestamp, source)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	for i := range readings {
		r := &readings[i]
		result, err := stmt.ExecContext(ctx, r.PlotID, r.SensorType, r.Value, r.Timestamp, r.Source)
		if err != nil {
			return fmt.Errorf("bulk insert reading %d: %w", i, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("bulk insert reading %d: %w", i, err)
		}
		r.ID = id
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// QueryReadings returns readings matching the query, oldest first.
func (s *FieldStore) QueryReadings(ctx context.Context, q roles.ReadingQuery) ([]agro.SensorReading, error) {
	query := `SELECT id, plot_id, sensor_type, value, timestamp, source FROM field_readings WHERE 1=1`
	var args []any
	if q.PlotID != "" {
		query += ` AND plot_id = ?`
		args = append(args, q.PlotID)
	}
	if q.SensorType != "" {
		query += ` AND sensor_type = ?`
		args = append(args, q.SensorType)
	}
	if !q.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.Since)
	}
	if q.Newest {
		query += ` ORDER BY timestamp DESC`
	} else {
		query += ` ORDER BY timestamp`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []agro.SensorReading
	for rows.Next() {
		var r agro.SensorReading
		if err := rows.Scan(&r.ID, &r.PlotID, &r.SensorType, &r.Value, &r.Timestamp, &r.Source); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if q.Newest {
		for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
			readings[i], readings[j] = readings[j], readings[i]
		}
	}
	return readings, nil
}

// PlotSummary aggregates the latest reading and count per sensor type for a
// plot.
func (s *FieldStore) PlotSummary(ctx context.Context, plotID string) (*agro.PlotSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_type, value, timestamp, cnt FROM (
			SELECT sensor_type, value, timestamp,
				COUNT(*) OVER (PARTITION BY sensor_type) AS cnt,
				ROW_NUMBER() OVER (PARTITION BY sensor_type ORDER BY timestamp DESC) AS rn
			FROM field_readings WHERE plot_id = ?
		) WHERE rn = 1 ORDER BY sensor_type`,
		plotID,
	)
	if err != nil {
		return nil, fmt.Errorf("plot summary: %w", err)
	}
	defer rows.Close()

	summary := &agro.PlotSummary{PlotID: plotID}
	for rows.Next() {
		var ss agro.SensorSummary
		if err := rows.Scan(&ss.SensorType, &ss.LastValue, &ss.LastSeen, &ss.Count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Sensors = append(summary.Sensors, ss)
		summary.Readings += ss.Count
	}
	return summary, rows.Err()
}

// DeleteOldReadings deletes readings older than the given time. Returns the
// number of rows deleted.
func (s *FieldStore) DeleteOldReadings(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM field_readings WHERE timestamp < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old readings: %w", err)
	}
	return result.RowsAffected()
}
