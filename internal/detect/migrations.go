package detect

import (
	"database/sql"

	"github.com/HerbHall/netsentry/pkg/plugin"
)

// Migrations returns the detect component's schema migrations.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "Create device_states and anomalies tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS device_states (
						address TEXT PRIMARY KEY,
						mac TEXT NOT NULL DEFAULT '',
						vendor TEXT NOT NULL DEFAULT '',
						hostname TEXT NOT NULL DEFAULT '',
						os_guess TEXT NOT NULL DEFAULT '',
						status TEXT NOT NULL,
						first_seen TIMESTAMP NOT NULL,
						last_seen TIMESTAMP,
						open_ports TEXT NOT NULL DEFAULT '[]',
						consecutive_unreachable INTEGER NOT NULL DEFAULT 0
					);

					CREATE TABLE IF NOT EXISTS anomalies (
						id TEXT PRIMARY KEY,
						address TEXT NOT NULL,
						type TEXT NOT NULL,
						severity TEXT NOT NULL,
						confidence REAL NOT NULL,
						evidence TEXT NOT NULL DEFAULT '{}',
						detected_at TIMESTAMP NOT NULL
					);

					CREATE INDEX IF NOT EXISTS idx_anomalies_address
						ON anomalies(address, detected_at);
					CREATE INDEX IF NOT EXISTS idx_anomalies_detected
						ON anomalies(detected_at);
				`)
				return err
			},
		},
	}
}
