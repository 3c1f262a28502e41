package scan

import (
	"database/sql"

	"github.com/HerbHall/netsentry/pkg/plugin"
)

// Migrations returns the scan component's schema migrations.
func Migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "Create scans and probe_results tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS scans (
						scan_id TEXT PRIMARY KEY,
						target_range TEXT NOT NULL,
						started_at TIMESTAMP NOT NULL,
						completed_at TIMESTAMP NOT NULL,
						total INTEGER NOT NULL,
						online INTEGER NOT NULL,
						offline INTEGER NOT NULL,
						unresolved INTEGER NOT NULL,
						from_cache INTEGER NOT NULL,
						avg_response_time_ms REAL NOT NULL DEFAULT 0
					);

					CREATE TABLE IF NOT EXISTS probe_results (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						scan_id TEXT NOT NULL REFERENCES scans(scan_id) ON DELETE CASCADE,
						address TEXT NOT NULL,
						reachable INTEGER NOT NULL,
						response_time_ms REAL NOT NULL DEFAULT 0,
						packet_loss REAL NOT NULL DEFAULT 0,
						mac TEXT NOT NULL DEFAULT '',
						vendor TEXT NOT NULL DEFAULT '',
						hostname TEXT NOT NULL DEFAULT '',
						os_guess TEXT NOT NULL DEFAULT '',
						open_ports TEXT NOT NULL DEFAULT '[]',
						unresolved INTEGER NOT NULL DEFAULT 0,
						from_cache INTEGER NOT NULL DEFAULT 0,
						captured_at TIMESTAMP NOT NULL
					);

					CREATE INDEX IF NOT EXISTS idx_probe_results_scan
						ON probe_results(scan_id);
					CREATE INDEX IF NOT EXISTS idx_probe_results_address
						ON probe_results(address, captured_at);
				`)
				return err
			},
		},
	}
}
