package detect

import (
	"database/sql"

	"github.com/verdantio/cropsense/pkg/plugin"
)

// migrations returns the Detect module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create detection tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS detect_anomalies (
						id              TEXT PRIMARY KEY,
						plot_id         TEXT NOT NULL,
						sensor_type     TEXT NOT NULL,
						value           REAL NOT NULL,
						anomaly_type    TEXT NOT NULL,
						severity        TEXT NOT NULL DEFAULT 'low',
						confidence      REAL NOT NULL DEFAULT 0,
						score           REAL,
						method          TEXT NOT NULL DEFAULT 'rules',
						description     TEXT NOT NULL DEFAULT '',
						detected_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						acknowledged_at DATETIME
					)`,
					`CREATE INDEX IF NOT EXISTS idx_detect_anomalies_plot ON detect_anomalies(plot_id)`,
					`CREATE INDEX IF NOT EXISTS idx_detect_anomalies_detected ON detect_anomalies(detected_at)`,
					`CREATE INDEX IF NOT EXISTS idx_detect_anomalies_severity ON detect_anomalies(severity)`,

					`CREATE TABLE IF NOT EXISTS detect_recommendations (
						id          TEXT PRIMARY KEY,
						anomaly_id  TEXT NOT NULL,
						plot_id     TEXT NOT NULL,
						action      TEXT NOT NULL,
						confidence  REAL NOT NULL DEFAULT 0,
						created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_detect_recommendations_plot ON detect_recommendations(plot_id)`,
					`CREATE INDEX IF NOT EXISTS idx_detect_recommendations_confidence ON detect_recommendations(confidence)`,

					`CREATE TABLE IF NOT EXISTS detect_trainings (
						id                INTEGER PRIMARY KEY AUTOINCREMENT,
						samples           INTEGER NOT NULL,
						features          INTEGER NOT NULL,
						anomalies_flagged INTEGER NOT NULL DEFAULT 0,
						anomaly_rate      REAL NOT NULL DEFAULT 0,
						score_mean        REAL NOT NULL DEFAULT 0,
						score_std         REAL NOT NULL DEFAULT 0,
						trained_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
