package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
)

// SnapshotStore persists sealed snapshots for history queries.
type SnapshotStore struct {
	store plugin.Store
}

// NewSnapshotStore creates a snapshot store backed by the shared database.
func NewSnapshotStore(store plugin.Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// SaveSnapshot writes a snapshot and all its probe results in one transaction.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scans (scan_id, target_range, started_at, completed_at,
				total, online, offline, unresolved, from_cache, avg_response_time_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ScanID, snap.TargetRange, snap.StartedAt, snap.CompletedAt,
			snap.Summary.Total, snap.Summary.Online, snap.Summary.Offline,
			snap.Summary.Unresolved, snap.Summary.FromCache, snap.Summary.AvgResponseTimeMs,
		)
		if err != nil {
			return fmt.Errorf("insert scan: %w", err)
		}

		for i := range snap.Results {
			r := &snap.Results[i]
			ports, err := json.Marshal(r.OpenPorts())
			if err != nil {
				return fmt.Errorf("marshal ports for %s: %w", r.Address, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO probe_results (scan_id, address, reachable, response_time_ms,
					packet_loss, mac, vendor, hostname, os_guess, open_ports,
					unresolved, from_cache, captured_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				snap.ScanID, r.Address, r.Reachable, r.ResponseTimeMs,
				r.PacketLoss, r.MAC, r.Vendor, r.Hostname, r.OSGuess, string(ports),
				r.Unresolved, r.FromCache, r.CapturedAt,
			)
			if err != nil {
				return fmt.Errorf("insert probe result for %s: %w", r.Address, err)
			}
		}
		return nil
	})
}

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ScanID      string
	TargetRange string
	Summary     models.SnapshotSummary
}

// RecentScans returns the most recent scan summaries, newest first.
func (s *SnapshotStore) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT scan_id, target_range, total, online, offline, unresolved,
			from_cache, avg_response_time_ms
		FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		err := rows.Scan(&rec.ScanID, &rec.TargetRange,
			&rec.Summary.Total, &rec.Summary.Online, &rec.Summary.Offline,
			&rec.Summary.Unresolved, &rec.Summary.FromCache, &rec.Summary.AvgResponseTimeMs)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneScans deletes all but the newest keep scans. Probe results cascade.
func (s *SnapshotStore) PruneScans(ctx context.Context, keep int) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx, `
		DELETE FROM scans WHERE scan_id NOT IN (
			SELECT scan_id FROM scans ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	return res.RowsAffected()
}
