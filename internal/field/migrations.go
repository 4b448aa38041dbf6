package field

import (
	"database/sql"

	"github.com/verdantio/cropsense/pkg/plugin"
)

// migrations returns the Field module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create farm, plot, and reading tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS field_farms (
						id         TEXT PRIMARY KEY,
						name       TEXT NOT NULL,
						owner      TEXT NOT NULL DEFAULT '',
						location   TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,

					`CREATE TABLE IF NOT EXISTS field_plots (
						id            TEXT PRIMARY KEY,
						farm_id       TEXT NOT NULL,
						name          TEXT NOT NULL,
						crop          TEXT NOT NULL DEFAULT '',
						area_hectares REAL NOT NULL DEFAULT 0,
						created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						FOREIGN KEY (farm_id) REFERENCES field_farms(id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_field_plots_farm ON field_plots(farm_id)`,

					`CREATE TABLE IF NOT EXISTS field_readings (
						id          INTEGER PRIMARY KEY AUTOINCREMENT,
						plot_id     TEXT NOT NULL,
						sensor_type TEXT NOT NULL,
						value       REAL NOT NULL,
						timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						source      TEXT NOT NULL DEFAULT 'sensor',
						FOREIGN KEY (plot_id) REFERENCES field_plots(id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_field_readings_plot_sensor_time
						ON field_readings(plot_id, sensor_type, timestamp)`,
					`CREATE INDEX IF NOT EXISTS idx_field_readings_time ON field_readings(timestamp)`,
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
