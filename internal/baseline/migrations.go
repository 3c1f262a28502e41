package baseline

import (
	"database/sql"

	"github.com/HerbHall/netsentry/pkg/plugin"
)

// Migrations returns the baseline component's schema migrations.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "Create baselines table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS baselines (
						address TEXT NOT NULL,
						metric_type TEXT NOT NULL,
						mean REAL NOT NULL,
						variance REAL NOT NULL,
						sample_count INTEGER NOT NULL,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL,
						PRIMARY KEY (address, metric_type)
					)
				`)
				return err
			},
		},
	}
}
