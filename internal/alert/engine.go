// Package alert turns anomalies into notifications, enforcing
// deduplication, throttling with exponential backoff, and escalation
// per (address, anomaly type) tracking key.
package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type channel struct {
	notifier    Notifier
	minSeverity string
}

// Engine is the sole owner of alert tracking state. At most one alert per
// tracking key is dispatched per throttle window; repeat occurrences
// inside the window only bump the occurrence count.
type Engine struct {
	cfg      Config
	channels []channel
	logger   *zap.Logger
	nowFunc  func() time.Time

	mu       sync.Mutex
	tracking map[models.TrackingKey]*models.AlertTrackingEntry
}

// NewEngine creates an alert engine with no channels registered.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.ThrottleBase <= 0 {
		cfg.ThrottleBase = DefaultConfig().ThrottleBase
	}
	if cfg.ThrottleCap < cfg.ThrottleBase {
		cfg.ThrottleCap = cfg.ThrottleBase
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = DefaultConfig().ChannelTimeout
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		nowFunc:  time.Now,
		tracking: make(map[models.TrackingKey]*models.AlertTrackingEntry),
	}
}

// Register adds a delivery channel. Alerts at or above minSeverity are
// routed to it; recovery alerts reach every channel.
func (e *Engine) Register(n Notifier, minSeverity string) {
	e.channels = append(e.channels, channel{notifier: n, minSeverity: minSeverity})
}

// Process runs every anomaly through the dedup/throttle/escalation state
// machine and dispatches the survivors. Returns the dispatched alerts
// (delivered or not) and the number of throttled suppressions.
func (e *Engine) Process(ctx context.Context, anomalies []models.Anomaly) ([]*models.Alert, int) {
	var alerts []*models.Alert
	suppressed := 0

	for i := range anomalies {
		a := &anomalies[i]
		if a.IsRecovery() {
			alerts = append(alerts, e.processRecovery(ctx, a)...)
			continue
		}
		if !models.SeverityAtLeast(a.Severity, e.cfg.MinSeverity) {
			continue
		}
		sent, wasSuppressed := e.processAnomaly(ctx, a)
		if wasSuppressed {
			suppressed++
		}
		alerts = append(alerts, sent...)
	}
	return alerts, suppressed
}

// processAnomaly folds one anomaly into its tracking entry and dispatches
// unless the key is inside its throttle window.
func (e *Engine) processAnomaly(ctx context.Context, a *models.Anomaly) ([]*models.Alert, bool) {
	key := models.TrackingKey{Address: a.Address, Type: a.Type}
	now := e.nowFunc().UTC()

	e.mu.Lock()
	entry, ok := e.tracking[key]
	if !ok {
		entry = &models.AlertTrackingEntry{Key: key, FirstOccurrence: now}
		e.tracking[key] = entry
	}
	entry.OccurrenceCount++
	entry.LastOccurrence = now
	entry.Resolved = false

	if now.Before(entry.ThrottleUntil) {
		count := entry.OccurrenceCount
		until := entry.ThrottleUntil
		e.mu.Unlock()
		e.logger.Debug("alert throttled",
			zap.String("key", key.String()),
			zap.Int("occurrences", count),
			zap.Time("throttle_until", until),
		)
		return nil, true
	}

	entry.EscalationLevel++
	entry.LastAlertSentAt = now
	entry.ThrottleUntil = now.Add(backoff(entry.EscalationLevel, e.cfg.ThrottleBase, e.cfg.ThrottleCap))
	level := entry.EscalationLevel
	occurrences := entry.OccurrenceCount
	e.mu.Unlock()

	msg := buildMessage(a, occurrences, level)
	return e.dispatch(ctx, a, key.String(), a.Severity, msg, level, false), false
}

// processRecovery resolves every open tracking entry for the anomaly's
// address and announces the recovery on all channels. Recovery bypasses
// throttling: a device coming back is always worth one notification.
// The throttle window itself survives resolution, so a flapping device
// cannot use its own recoveries to dodge suppression.
func (e *Engine) processRecovery(ctx context.Context, a *models.Anomaly) []*models.Alert {
	key := models.TrackingKey{Address: a.Address, Type: a.Type}
	now := e.nowFunc().UTC()

	e.mu.Lock()
	resolved := 0
	for k, entry := range e.tracking {
		if k.Address != a.Address || entry.Resolved {
			continue
		}
		entry.Resolved = true
		entry.EscalationLevel = 0
		entry.OccurrenceCount = 0
		entry.LastOccurrence = now
		resolved++
	}
	e.mu.Unlock()

	if resolved == 0 {
		// Nothing was open for this address; there is no lineage to close.
		return nil
	}

	e.logger.Info("alert lineage resolved",
		zap.String("address", a.Address),
		zap.Int("entries", resolved),
	)
	msg := fmt.Sprintf("device %s recovered: back online", a.Address)
	return e.dispatch(ctx, a, key.String(), a.Severity, msg, 0, true)
}

// dispatch fans the alert out to every eligible channel concurrently.
// A channel failure is recorded on that channel's alert record only and
// never blocks the other channels.
func (e *Engine) dispatch(ctx context.Context, a *models.Anomaly, trackingKey, severity, msg string, level int, recovery bool) []*models.Alert {
	var eligible []channel
	for _, ch := range e.channels {
		if recovery || models.SeverityAtLeast(severity, ch.minSeverity) {
			eligible = append(eligible, ch)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	now := e.nowFunc().UTC()
	alerts := make([]*models.Alert, len(eligible))
	var wg sync.WaitGroup
	for i, ch := range eligible {
		al := &models.Alert{
			ID:              uuid.New().String(),
			TrackingKey:     trackingKey,
			AnomalyID:       a.ID,
			Severity:        severity,
			Channel:         ch.notifier.Name(),
			Message:         msg,
			SentAt:          now,
			EscalationLevel: level,
		}
		alerts[i] = al

		wg.Add(1)
		go func(ch channel, al *models.Alert) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, e.cfg.ChannelTimeout)
			defer cancel()

			if err := ch.notifier.Notify(cctx, al, a); err != nil {
				al.Error = err.Error()
				e.logger.Warn("alert delivery failed",
					zap.String("channel", al.Channel),
					zap.String("alert_id", al.ID),
					zap.Error(err),
				)
				return
			}
			al.Delivered = true
		}(ch, al)
	}
	wg.Wait()
	return alerts
}

// Entry returns a copy of the tracking entry for a key, if one exists.
func (e *Engine) Entry(key models.TrackingKey) (models.AlertTrackingEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.tracking[key]
	if !ok {
		return models.AlertTrackingEntry{}, false
	}
	return *entry, true
}

// TrackingEntries returns copies of every tracking entry, sorted by key.
func (e *Engine) TrackingEntries() []models.AlertTrackingEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.AlertTrackingEntry, 0, len(e.tracking))
	for _, entry := range e.tracking {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// LoadTracking seeds the engine from persisted entries. Called once at
// startup so throttle windows survive restarts.
func (e *Engine) LoadTracking(entries []models.AlertTrackingEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range entries {
		entry := entries[i]
		e.tracking[entry.Key] = &entry
	}
}

// backoff returns the throttle window after the level-th alert:
// base, 2*base, 4*base, ... capped.
func backoff(level int, base, limit time.Duration) time.Duration {
	if level < 1 {
		level = 1
	}
	d := base
	for i := 1; i < level; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// buildMessage renders the human-readable alert text.
func buildMessage(a *models.Anomaly, occurrences, level int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "device %s: %s", a.Address, describeAnomaly(a))
	fmt.Fprintf(&b, " [severity=%s", a.Severity)
	if occurrences > 1 {
		fmt.Fprintf(&b, " occurrences=%d", occurrences)
	}
	if level > 1 {
		fmt.Fprintf(&b, " escalation=%d", level)
	}
	b.WriteString("]")
	return b.String()
}

func describeAnomaly(a *models.Anomaly) string {
	switch a.Type {
	case models.AnomalyStatusChange:
		from, _ := a.Evidence["from"].(string)
		to, _ := a.Evidence["to"].(string)
		return fmt.Sprintf("status changed from %s to %s", from, to)
	case models.AnomalyPerformance:
		return "response time degraded beyond baseline"
	case models.AnomalyIdentityChange:
		oldMAC, _ := a.Evidence["old_mac"].(string)
		newMAC, _ := a.Evidence["new_mac"].(string)
		return fmt.Sprintf("MAC changed from %s to %s", oldMAC, newMAC)
	case models.AnomalyNewServiceExposed:
		return fmt.Sprintf("new services exposed: %v", a.Evidence["added_ports"])
	case models.AnomalyServiceRemoved:
		return fmt.Sprintf("services removed: %v", a.Evidence["removed_ports"])
	default:
		return string(a.Type)
	}
}
