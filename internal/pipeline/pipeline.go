// Package pipeline wires the monitoring cycle together: scan the subnet,
// detect changes against prior state, feed baselines, and alert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HerbHall/netsentry/internal/alert"
	"github.com/HerbHall/netsentry/internal/baseline"
	"github.com/HerbHall/netsentry/internal/detect"
	"github.com/HerbHall/netsentry/internal/metrics"
	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
	"go.uber.org/zap"
)

// Scanner is the slice of scan.Scanner the runner needs.
type Scanner interface {
	Scan(ctx context.Context, cidr string) (*models.Snapshot, error)
}

// SnapshotSaver persists sealed snapshots. Optional.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
}

// StateSaver persists device states and anomaly history. Optional.
type StateSaver interface {
	SaveStates(ctx context.Context, states map[string]*models.DeviceState) error
	SaveAnomalies(ctx context.Context, anomalies []models.Anomaly) error
}

// BaselineSaver persists baselines. Optional.
type BaselineSaver interface {
	SaveAll(ctx context.Context, baselines []models.Baseline) error
	DeleteForAddress(ctx context.Context, address string) error
}

// AlertSaver persists alerts and tracking entries. Optional.
type AlertSaver interface {
	SaveAlerts(ctx context.Context, alerts []*models.Alert) error
	SaveTracking(ctx context.Context, entries []models.AlertTrackingEntry) error
}

// Deps are the runner's collaborators. Scanner, Detector, Tracker, Engine,
// and Logger are required; the rest may be nil.
type Deps struct {
	Scanner  Scanner
	Detector *detect.Detector
	Tracker  *baseline.Tracker
	Engine   *alert.Engine

	Snapshots SnapshotSaver
	States    StateSaver
	Baselines BaselineSaver
	Alerts    AlertSaver

	Bus     plugin.EventBus
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// CycleResult summarizes one completed pipeline cycle.
type CycleResult struct {
	ScanID     string
	Summary    models.SnapshotSummary
	Anomalies  []models.Anomaly
	Alerts     []*models.Alert
	Suppressed int
	Elapsed    time.Duration
}

// Runner executes monitoring cycles. It owns the authoritative device
// state map between cycles; RunCycle is not safe for concurrent calls.
type Runner struct {
	subnet string
	deps   Deps

	mu     sync.Mutex
	states map[string]*models.DeviceState
}

// NewRunner creates a runner for one target range.
func NewRunner(subnet string, deps Deps) *Runner {
	return &Runner{
		subnet: subnet,
		deps:   deps,
		states: make(map[string]*models.DeviceState),
	}
}

// LoadStates seeds the runner's device state, typically from the store at
// startup so confirmation counters and port sets survive restarts.
func (r *Runner) LoadStates(states map[string]*models.DeviceState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, st := range states {
		r.states[addr] = st.Clone()
	}
}

// States returns a copy of the current device state map.
func (r *Runner) States() map[string]*models.DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*models.DeviceState, len(r.states))
	for addr, st := range r.states {
		out[addr] = st.Clone()
	}
	return out
}

// RunCycle executes one scan-detect-alert cycle. A scan failure aborts the
// cycle. Persistence failures do not: the in-memory cycle completes first
// and the accumulated errors are returned alongside the result.
func (r *Runner) RunCycle(ctx context.Context) (CycleResult, error) {
	started := time.Now()

	snap, err := r.deps.Scanner.Scan(ctx, r.subnet)
	if err != nil {
		r.countCycle("error")
		return CycleResult{}, fmt.Errorf("scan: %w", err)
	}
	r.observeScan(snap, time.Since(started))

	r.mu.Lock()
	prior := r.states
	r.mu.Unlock()

	detection := r.deps.Detector.Detect(prior, snap)

	// Baselines are fed after detection so a sample never judges itself.
	r.updateBaselines(snap)
	forgotten := r.forgetChangedIdentities(detection.Anomalies)

	alerts, suppressed := r.deps.Engine.Process(ctx, detection.Anomalies)

	r.mu.Lock()
	r.states = detection.States
	r.mu.Unlock()

	r.observeCycle(detection, alerts, suppressed)
	r.publishAnomalies(ctx, snap.ScanID, detection.Anomalies)

	persistErr := r.persist(ctx, snap, detection, alerts, forgotten)

	result := CycleResult{
		ScanID:     snap.ScanID,
		Summary:    snap.Summary,
		Anomalies:  detection.Anomalies,
		Alerts:     alerts,
		Suppressed: suppressed,
		Elapsed:    time.Since(started),
	}

	logger := r.deps.Logger
	if persistErr != nil {
		r.countCycle("error")
		logger.Error("cycle completed with persistence errors",
			zap.String("scan_id", snap.ScanID),
			zap.Error(persistErr),
		)
		return result, persistErr
	}

	r.countCycle("ok")
	logger.Info("cycle completed",
		zap.String("scan_id", snap.ScanID),
		zap.Int("online", snap.Summary.Online),
		zap.Int("anomalies", len(detection.Anomalies)),
		zap.Int("alerts", len(alerts)),
		zap.Int("suppressed", suppressed),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// updateBaselines feeds reachable, freshly probed samples to the tracker.
// Cached results are skipped so one observation is never counted twice;
// offline probes are skipped because absence is not a latency sample.
func (r *Runner) updateBaselines(snap *models.Snapshot) {
	for i := range snap.Results {
		res := &snap.Results[i]
		if !res.Reachable || res.FromCache || res.Unresolved {
			continue
		}
		r.deps.Tracker.Update(res.Address, models.MetricResponseTime, res.ResponseTimeMs)
		r.deps.Tracker.Update(res.Address, models.MetricPacketLoss, res.PacketLoss)
	}
}

// forgetChangedIdentities drops baselines for addresses whose MAC changed.
// The new device behind the address starts with a clean slate.
func (r *Runner) forgetChangedIdentities(anomalies []models.Anomaly) []string {
	var forgotten []string
	for i := range anomalies {
		if anomalies[i].Type != models.AnomalyIdentityChange {
			continue
		}
		r.deps.Tracker.Forget(anomalies[i].Address)
		forgotten = append(forgotten, anomalies[i].Address)
	}
	return forgotten
}

func (r *Runner) persist(ctx context.Context, snap *models.Snapshot, detection detect.Result, alerts []*models.Alert, forgotten []string) error {
	var errs []error

	if r.deps.Snapshots != nil {
		if err := r.deps.Snapshots.SaveSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
	}
	if r.deps.States != nil {
		if err := r.deps.States.SaveStates(ctx, detection.States); err != nil {
			errs = append(errs, fmt.Errorf("save states: %w", err))
		}
		if err := r.deps.States.SaveAnomalies(ctx, detection.Anomalies); err != nil {
			errs = append(errs, fmt.Errorf("save anomalies: %w", err))
		}
	}
	if r.deps.Baselines != nil {
		for _, addr := range forgotten {
			if err := r.deps.Baselines.DeleteForAddress(ctx, addr); err != nil {
				errs = append(errs, fmt.Errorf("delete baselines for %s: %w", addr, err))
			}
		}
		if err := r.deps.Baselines.SaveAll(ctx, r.deps.Tracker.All()); err != nil {
			errs = append(errs, fmt.Errorf("save baselines: %w", err))
		}
	}
	if r.deps.Alerts != nil {
		if err := r.deps.Alerts.SaveAlerts(ctx, alerts); err != nil {
			errs = append(errs, fmt.Errorf("save alerts: %w", err))
		}
		if err := r.deps.Alerts.SaveTracking(ctx, r.deps.Engine.TrackingEntries()); err != nil {
			errs = append(errs, fmt.Errorf("save tracking: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) publishAnomalies(ctx context.Context, scanID string, anomalies []models.Anomaly) {
	if r.deps.Bus == nil {
		return
	}
	for i := range anomalies {
		r.deps.Bus.PublishAsync(ctx, plugin.Event{
			Topic:     detect.TopicAnomalyDetected,
			Source:    "pipeline",
			Timestamp: time.Now(),
			Payload:   detect.AnomalyEvent{ScanID: scanID, Anomaly: anomalies[i]},
		})
	}
}

func (r *Runner) observeScan(snap *models.Snapshot, elapsed time.Duration) {
	m := r.deps.Metrics
	if m == nil {
		return
	}
	m.ScanDuration.Observe(elapsed.Seconds())
	m.ProbesTotal.WithLabelValues("reachable").Add(float64(snap.Summary.Online))
	m.ProbesTotal.WithLabelValues("unreachable").Add(float64(snap.Summary.Offline))
	m.ProbesTotal.WithLabelValues("unresolved").Add(float64(snap.Summary.Unresolved))
	m.CacheHitsTotal.Add(float64(snap.Summary.FromCache))
}

func (r *Runner) observeCycle(detection detect.Result, alerts []*models.Alert, suppressed int) {
	m := r.deps.Metrics
	if m == nil {
		return
	}

	var online, offline int
	for _, st := range detection.States {
		switch st.Status {
		case models.DeviceStatusOnline, models.DeviceStatusDegraded:
			online++
		case models.DeviceStatusOffline:
			offline++
		}
	}
	m.DevicesOnline.Set(float64(online))
	m.DevicesOffline.Set(float64(offline))

	for i := range detection.Anomalies {
		m.AnomaliesTotal.WithLabelValues(string(detection.Anomalies[i].Type)).Inc()
	}
	for _, a := range alerts {
		outcome := "delivered"
		if !a.Delivered {
			outcome = "failed"
		}
		m.AlertsDispatched.WithLabelValues(a.Channel, outcome).Inc()
	}
	m.AlertsSuppressed.Add(float64(suppressed))
}

func (r *Runner) countCycle(outcome string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	}
}
