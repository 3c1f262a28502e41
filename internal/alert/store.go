package alert

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
)

// AlertStore persists the append-only alert history and tracking entries.
type AlertStore struct {
	store plugin.Store
}

// NewAlertStore creates an alert store backed by the shared database.
func NewAlertStore(store plugin.Store) *AlertStore {
	return &AlertStore{store: store}
}

// SaveAlerts appends dispatched alerts in one transaction.
func (s *AlertStore) SaveAlerts(ctx context.Context, alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for _, a := range alerts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO alerts (id, tracking_key, anomaly_id, severity, channel,
					message, sent_at, delivered, error, escalation_level)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ID, a.TrackingKey, a.AnomalyID, a.Severity, a.Channel,
				a.Message, a.SentAt, a.Delivered, a.Error, a.EscalationLevel,
			)
			if err != nil {
				return fmt.Errorf("insert alert %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// AlertsSince returns alerts sent at or after the cutoff, newest first.
func (s *AlertStore) AlertsSince(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, tracking_key, anomaly_id, severity, channel, message,
			sent_at, delivered, error, escalation_level
		FROM alerts WHERE sent_at >= ? ORDER BY sent_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(&a.ID, &a.TrackingKey, &a.AnomalyID, &a.Severity,
			&a.Channel, &a.Message, &a.SentAt, &a.Delivered, &a.Error,
			&a.EscalationLevel)
		if err != nil {
			return nil, fmt.Errorf("alert row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveTracking upserts the given tracking entries in one transaction.
func (s *AlertStore) SaveTracking(ctx context.Context, entries []models.AlertTrackingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for i := range entries {
			entry := &entries[i]
			var sentAt, throttleUntil any
			if !entry.LastAlertSentAt.IsZero() {
				sentAt = entry.LastAlertSentAt
			}
			if !entry.ThrottleUntil.IsZero() {
				throttleUntil = entry.ThrottleUntil
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO alert_tracking (address, type, first_occurrence,
					last_occurrence, occurrence_count, last_alert_sent_at,
					throttle_until, escalation_level, resolved)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (address, type) DO UPDATE SET
					last_occurrence = excluded.last_occurrence,
					occurrence_count = excluded.occurrence_count,
					last_alert_sent_at = excluded.last_alert_sent_at,
					throttle_until = excluded.throttle_until,
					escalation_level = excluded.escalation_level,
					resolved = excluded.resolved`,
				entry.Key.Address, string(entry.Key.Type), entry.FirstOccurrence,
				entry.LastOccurrence, entry.OccurrenceCount, sentAt,
				throttleUntil, entry.EscalationLevel, entry.Resolved,
			)
			if err != nil {
				return fmt.Errorf("upsert tracking %s: %w", entry.Key, err)
			}
		}
		return nil
	})
}

// LoadTracking returns every persisted tracking entry.
func (s *AlertStore) LoadTracking(ctx context.Context) ([]models.AlertTrackingEntry, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT address, type, first_occurrence, last_occurrence,
			occurrence_count, last_alert_sent_at, throttle_until,
			escalation_level, resolved
		FROM alert_tracking`)
	if err != nil {
		return nil, fmt.Errorf("query tracking: %w", err)
	}
	defer rows.Close()

	var out []models.AlertTrackingEntry
	for rows.Next() {
		var entry models.AlertTrackingEntry
		var typ string
		var sentAt, throttleUntil sql.NullTime
		err := rows.Scan(&entry.Key.Address, &typ, &entry.FirstOccurrence,
			&entry.LastOccurrence, &entry.OccurrenceCount, &sentAt,
			&throttleUntil, &entry.EscalationLevel, &entry.Resolved)
		if err != nil {
			return nil, fmt.Errorf("tracking row: %w", err)
		}
		entry.Key.Type = models.AnomalyType(typ)
		if sentAt.Valid {
			entry.LastAlertSentAt = sentAt.Time
		}
		if throttleUntil.Valid {
			entry.ThrottleUntil = throttleUntil.Time
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
