package alert

import (
	"database/sql"

	"github.com/HerbHall/netsentry/pkg/plugin"
)

// Migrations returns the alert component's schema migrations.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "Create alerts and alert_tracking tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS alerts (
						id TEXT PRIMARY KEY,
						tracking_key TEXT NOT NULL,
						anomaly_id TEXT NOT NULL DEFAULT '',
						severity TEXT NOT NULL,
						channel TEXT NOT NULL,
						message TEXT NOT NULL,
						sent_at TIMESTAMP NOT NULL,
						delivered INTEGER NOT NULL DEFAULT 0,
						error TEXT NOT NULL DEFAULT '',
						escalation_level INTEGER NOT NULL DEFAULT 0
					);

					CREATE INDEX IF NOT EXISTS idx_alerts_key
						ON alerts(tracking_key, sent_at);

					CREATE TABLE IF NOT EXISTS alert_tracking (
						address TEXT NOT NULL,
						type TEXT NOT NULL,
						first_occurrence TIMESTAMP NOT NULL,
						last_occurrence TIMESTAMP NOT NULL,
						occurrence_count INTEGER NOT NULL,
						last_alert_sent_at TIMESTAMP,
						throttle_until TIMESTAMP,
						escalation_level INTEGER NOT NULL DEFAULT 0,
						resolved INTEGER NOT NULL DEFAULT 0,
						PRIMARY KEY (address, type)
					);
				`)
				return err
			},
		},
	}
}
