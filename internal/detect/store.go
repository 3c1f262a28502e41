package detect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
)

// StateStore persists device states and the append-only anomaly history.
type StateStore struct {
	store plugin.Store
}

// NewStateStore creates a state store backed by the shared database.
func NewStateStore(store plugin.Store) *StateStore {
	return &StateStore{store: store}
}

// SaveStates upserts the given device states in one transaction. Transition
// history is in-memory only; it is rebuilt as new transitions occur.
func (s *StateStore) SaveStates(ctx context.Context, states map[string]*models.DeviceState) error {
	if len(states) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for _, st := range states {
			ports, err := json.Marshal(st.OpenPorts)
			if err != nil {
				return fmt.Errorf("marshal ports for %s: %w", st.Address, err)
			}
			var lastSeen any
			if !st.LastSeen.IsZero() {
				lastSeen = st.LastSeen
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO device_states (address, mac, vendor, hostname, os_guess,
					status, first_seen, last_seen, open_ports, consecutive_unreachable)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (address) DO UPDATE SET
					mac = excluded.mac,
					vendor = excluded.vendor,
					hostname = excluded.hostname,
					os_guess = excluded.os_guess,
					status = excluded.status,
					last_seen = excluded.last_seen,
					open_ports = excluded.open_ports,
					consecutive_unreachable = excluded.consecutive_unreachable`,
				st.Address, st.MAC, st.Vendor, st.Hostname, st.OSGuess,
				string(st.Status), st.FirstSeen, lastSeen, string(ports),
				st.ConsecutiveUnreachable,
			)
			if err != nil {
				return fmt.Errorf("upsert state for %s: %w", st.Address, err)
			}
		}
		return nil
	})
}

// LoadStates returns every persisted device state keyed by address.
func (s *StateStore) LoadStates(ctx context.Context) (map[string]*models.DeviceState, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT address, mac, vendor, hostname, os_guess, status,
			first_seen, last_seen, open_ports, consecutive_unreachable
		FROM device_states`)
	if err != nil {
		return nil, fmt.Errorf("query device states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*models.DeviceState)
	for rows.Next() {
		var st models.DeviceState
		var status, ports string
		var lastSeen sql.NullTime
		err := rows.Scan(&st.Address, &st.MAC, &st.Vendor, &st.Hostname,
			&st.OSGuess, &status, &st.FirstSeen, &lastSeen, &ports,
			&st.ConsecutiveUnreachable)
		if err != nil {
			return nil, fmt.Errorf("device state row: %w", err)
		}
		st.Status = models.DeviceStatus(status)
		if lastSeen.Valid {
			st.LastSeen = lastSeen.Time
		}
		if err := json.Unmarshal([]byte(ports), &st.OpenPorts); err != nil {
			return nil, fmt.Errorf("unmarshal ports for %s: %w", st.Address, err)
		}
		states[st.Address] = &st
	}
	return states, rows.Err()
}

// SaveAnomalies appends anomalies to the history in one transaction.
func (s *StateStore) SaveAnomalies(ctx context.Context, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for i := range anomalies {
			a := &anomalies[i]
			evidence, err := json.Marshal(a.Evidence)
			if err != nil {
				return fmt.Errorf("marshal evidence for %s: %w", a.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO anomalies (id, address, type, severity, confidence, evidence, detected_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.ID, a.Address, string(a.Type), a.Severity, a.Confidence,
				string(evidence), a.DetectedAt,
			)
			if err != nil {
				return fmt.Errorf("insert anomaly %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// AnomaliesSince returns anomalies detected at or after the cutoff,
// newest first.
func (s *StateStore) AnomaliesSince(ctx context.Context, cutoff time.Time) ([]models.Anomaly, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, address, type, severity, confidence, evidence, detected_at
		FROM anomalies WHERE detected_at >= ? ORDER BY detected_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		var typ, evidence string
		err := rows.Scan(&a.ID, &a.Address, &typ, &a.Severity, &a.Confidence,
			&evidence, &a.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("anomaly row: %w", err)
		}
		a.Type = models.AnomalyType(typ)
		if err := json.Unmarshal([]byte(evidence), &a.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence for %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
