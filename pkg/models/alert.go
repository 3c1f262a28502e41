package models

import "time"

// TrackingKey identifies one deduplication/throttle lineage.
type TrackingKey struct {
	Address string      `json:"address"`
	Type    AnomalyType `json:"type"`
}

// String renders the key in its canonical "address:type" form.
func (k TrackingKey) String() string {
	return k.Address + ":" + string(k.Type)
}

// AlertTrackingEntry is the sole structure enforcing "at most one alert per
// key per throttle window". Owned exclusively by the alert engine.
type AlertTrackingEntry struct {
	Key             TrackingKey `json:"key"`
	FirstOccurrence time.Time   `json:"first_occurrence"`
	LastOccurrence  time.Time   `json:"last_occurrence"`
	OccurrenceCount int         `json:"occurrence_count"`
	LastAlertSentAt time.Time   `json:"last_alert_sent_at"`
	ThrottleUntil   time.Time   `json:"throttle_until"`
	EscalationLevel int         `json:"escalation_level"`
	Resolved        bool        `json:"resolved"`
}

// Alert is one dispatched (or attempted) notification. Immutable once
// dispatched; the alert history is append-only.
type Alert struct {
	ID              string    `json:"id"`
	TrackingKey     string    `json:"tracking_key"`
	AnomalyID       string    `json:"anomaly_id,omitempty"`
	Severity        string    `json:"severity"`
	Channel         string    `json:"channel"`
	Message         string    `json:"message"`
	SentAt          time.Time `json:"sent_at"`
	Delivered       bool      `json:"delivered"`
	Error           string    `json:"error,omitempty"`
	EscalationLevel int       `json:"escalation_level"`
}
