package alert

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/netsentry/internal/store"
	"github.com/HerbHall/netsentry/pkg/models"
)

func newTestStore(t *testing.T) *AlertStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), "alert", Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewAlertStore(db)
}

func TestAlertHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	in := []*models.Alert{
		{
			ID: "al-1", TrackingKey: "10.0.0.1:status_change",
			Severity: models.SeverityHigh, Channel: "log",
			Message: "device 10.0.0.1: status changed from online to offline",
			SentAt:  now.Add(-time.Hour), Delivered: true, EscalationLevel: 1,
		},
		{
			ID: "al-2", TrackingKey: "10.0.0.1:status_change",
			Severity: models.SeverityHigh, Channel: "webhook",
			Message: "device 10.0.0.1: status changed from online to offline",
			SentAt:  now, Error: "channel unavailable", EscalationLevel: 2,
		},
	}
	if err := s.SaveAlerts(ctx, in); err != nil {
		t.Fatalf("SaveAlerts: %v", err)
	}

	out, err := s.AlertsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("AlertsSince: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d alerts, want 2", len(out))
	}
	if out[0].ID != "al-2" {
		t.Error("alerts not ordered newest first")
	}
	if out[0].Delivered || out[0].Error == "" {
		t.Errorf("failed delivery not preserved: %+v", out[0])
	}
	if !out[1].Delivered {
		t.Errorf("successful delivery not preserved: %+v", out[1])
	}
}

func TestTrackingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	entry := models.AlertTrackingEntry{
		Key:             models.TrackingKey{Address: "10.0.0.1", Type: models.AnomalyStatusChange},
		FirstOccurrence: now.Add(-time.Hour),
		LastOccurrence:  now,
		OccurrenceCount: 7,
		LastAlertSentAt: now.Add(-10 * time.Minute),
		ThrottleUntil:   now.Add(10 * time.Minute),
		EscalationLevel: 3,
	}
	if err := s.SaveTracking(ctx, []models.AlertTrackingEntry{entry}); err != nil {
		t.Fatalf("SaveTracking: %v", err)
	}

	// Upsert with resolved state: counters reset, throttle window kept.
	entry.OccurrenceCount = 0
	entry.Resolved = true
	entry.EscalationLevel = 0
	entry.LastAlertSentAt = time.Time{}
	if err := s.SaveTracking(ctx, []models.AlertTrackingEntry{entry}); err != nil {
		t.Fatalf("SaveTracking upsert: %v", err)
	}

	out, err := s.LoadTracking(ctx)
	if err != nil {
		t.Fatalf("LoadTracking: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1", len(out))
	}
	got := out[0]
	if got.Key.Address != "10.0.0.1" || got.Key.Type != models.AnomalyStatusChange {
		t.Errorf("key = %+v", got.Key)
	}
	if got.OccurrenceCount != 0 || !got.Resolved {
		t.Errorf("entry = %+v", got)
	}
	if !got.LastAlertSentAt.IsZero() {
		t.Errorf("cleared last_alert_sent_at came back as %v", got.LastAlertSentAt)
	}
	if !got.ThrottleUntil.Equal(entry.ThrottleUntil) {
		t.Errorf("throttle = %v, want %v preserved", got.ThrottleUntil, entry.ThrottleUntil)
	}
}
