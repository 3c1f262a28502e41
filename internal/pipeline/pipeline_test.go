package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/netsentry/internal/alert"
	"github.com/HerbHall/netsentry/internal/baseline"
	"github.com/HerbHall/netsentry/internal/detect"
	"github.com/HerbHall/netsentry/pkg/models"
	"go.uber.org/zap"
)

type fakeScanner struct {
	snaps []*models.Snapshot
	calls int
	err   error
}

func (f *fakeScanner) Scan(_ context.Context, _ string) (*models.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.snaps) {
		f.calls = len(f.snaps) - 1
	}
	snap := f.snaps[f.calls]
	f.calls++
	return snap, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.Alert
}

func (r *recordingNotifier) Name() string { return "test" }

func (r *recordingNotifier) Notify(_ context.Context, a *models.Alert, _ *models.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, *a)
	return nil
}

type failingSnapshotSaver struct{}

func (failingSnapshotSaver) SaveSnapshot(context.Context, *models.Snapshot) error {
	return errors.New("disk full")
}

func snapshotOf(results ...models.ProbeResult) *models.Snapshot {
	now := time.Now().UTC()
	snap := &models.Snapshot{
		ScanID:      "scan-1",
		TargetRange: "192.168.1.0/29",
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
		Results:     results,
	}
	for _, r := range results {
		snap.Summary.Total++
		switch {
		case r.Unresolved:
			snap.Summary.Unresolved++
		case r.Reachable:
			snap.Summary.Online++
		default:
			snap.Summary.Offline++
		}
		if r.FromCache {
			snap.Summary.FromCache++
		}
	}
	return snap
}

func reachable(addr string, rtt float64) models.ProbeResult {
	return models.ProbeResult{Address: addr, Reachable: true, ResponseTimeMs: rtt, CapturedAt: time.Now().UTC()}
}

func unreachable(addr string) models.ProbeResult {
	return models.ProbeResult{Address: addr, PacketLoss: 100, CapturedAt: time.Now().UTC()}
}

func newTestRunner(scanner Scanner, extra ...func(*Deps)) (*Runner, *recordingNotifier, *baseline.Tracker) {
	logger := zap.NewNop()
	tracker := baseline.NewTracker(baseline.DefaultConfig(), logger)
	notifier := &recordingNotifier{}
	engine := alert.NewEngine(alert.DefaultConfig(), logger)
	engine.Register(notifier, models.SeverityInfo)

	deps := Deps{
		Scanner:  scanner,
		Detector: detect.NewDetector(detect.DefaultConfig(), tracker, logger),
		Tracker:  tracker,
		Engine:   engine,
		Logger:   logger,
	}
	for _, fn := range extra {
		fn(&deps)
	}
	return NewRunner("192.168.1.0/29", deps), notifier, tracker
}

func TestRunCycleEndToEnd(t *testing.T) {
	scanner := &fakeScanner{snaps: []*models.Snapshot{
		snapshotOf(reachable("192.168.1.1", 5), reachable("192.168.1.2", 8)),
		snapshotOf(reachable("192.168.1.1", 5), unreachable("192.168.1.2")),
		snapshotOf(reachable("192.168.1.1", 5), unreachable("192.168.1.2")),
	}}
	r, notifier, _ := newTestRunner(scanner)
	ctx := context.Background()

	// Cycle 1: both hosts transition out of unknown.
	res, err := r.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if len(res.Anomalies) != 2 {
		t.Fatalf("cycle 1 anomalies = %d, want 2 first observations", len(res.Anomalies))
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("cycle 1 alerts = %d, want 2", len(res.Alerts))
	}

	// Cycle 2: one miss is noise.
	res, err = r.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if len(res.Anomalies) != 0 {
		t.Fatalf("cycle 2 anomalies = %d, want 0", len(res.Anomalies))
	}

	// Cycle 3: second consecutive miss confirms the outage. The cycle-1
	// alert opened the status_change throttle window for this address, so
	// the anomaly is recorded but its alert is suppressed.
	res, err = r.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 3: %v", err)
	}
	if len(res.Anomalies) != 1 || res.Anomalies[0].Type != models.AnomalyStatusChange {
		t.Fatalf("cycle 3 anomalies = %+v, want one status_change", res.Anomalies)
	}
	if len(res.Alerts) != 0 || res.Suppressed != 1 {
		t.Fatalf("cycle 3 alerts = %d, suppressed = %d; want 0 and 1", len(res.Alerts), res.Suppressed)
	}

	states := r.States()
	if states["192.168.1.2"].Status != models.DeviceStatusOffline {
		t.Error("192.168.1.2 not offline after confirmation")
	}
	if states["192.168.1.1"].Status != models.DeviceStatusOnline {
		t.Error("192.168.1.1 not online")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 2 {
		t.Errorf("total deliveries = %d, want 2", len(notifier.calls))
	}
}

func TestRunCycleScanFailureAborts(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("raw socket permission denied")}
	r, _, _ := newTestRunner(scanner)

	_, err := r.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected scan error")
	}
	if len(r.States()) != 0 {
		t.Error("failed cycle mutated device state")
	}
}

func TestRunCyclePersistenceFailureStillCompletes(t *testing.T) {
	scanner := &fakeScanner{snaps: []*models.Snapshot{
		snapshotOf(reachable("192.168.1.1", 5)),
	}}
	r, _, _ := newTestRunner(scanner, func(d *Deps) {
		d.Snapshots = failingSnapshotSaver{}
	})

	res, err := r.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if len(res.Anomalies) != 1 {
		t.Errorf("in-memory detection incomplete: %d anomalies", len(res.Anomalies))
	}
	if r.States()["192.168.1.1"] == nil {
		t.Error("state not committed despite persistence failure")
	}
}

func TestBaselinesFedOnlyFreshReachableSamples(t *testing.T) {
	cached := reachable("192.168.1.3", 7)
	cached.FromCache = true
	scanner := &fakeScanner{snaps: []*models.Snapshot{
		snapshotOf(
			reachable("192.168.1.1", 5),
			unreachable("192.168.1.2"),
			cached,
			models.ProbeResult{Address: "192.168.1.4", Unresolved: true},
		),
	}}
	r, _, tracker := newTestRunner(scanner)

	if _, err := r.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if _, ok := tracker.Get("192.168.1.1", models.MetricResponseTime); !ok {
		t.Error("fresh reachable sample not fed to tracker")
	}
	for _, addr := range []string{"192.168.1.2", "192.168.1.3", "192.168.1.4"} {
		if _, ok := tracker.Get(addr, models.MetricResponseTime); ok {
			t.Errorf("%s fed to tracker, want skipped", addr)
		}
	}
}

func TestIdentityChangeForgetsBaselines(t *testing.T) {
	first := reachable("192.168.1.1", 5)
	first.MAC = "B8:27:EB:11:11:11"
	second := reachable("192.168.1.1", 5)
	second.MAC = "00:50:56:22:22:22"

	scanner := &fakeScanner{snaps: []*models.Snapshot{
		snapshotOf(first),
		snapshotOf(first), // binds MAC, builds baseline
		snapshotOf(second),
	}}
	r, _, tracker := newTestRunner(scanner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := r.RunCycle(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i+1, err)
		}
	}
	if _, ok := tracker.Get("192.168.1.1", models.MetricResponseTime); !ok {
		t.Fatal("baseline missing before identity change")
	}

	res, err := r.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 3: %v", err)
	}
	var sawIdentity bool
	for _, a := range res.Anomalies {
		if a.Type == models.AnomalyIdentityChange {
			sawIdentity = true
		}
	}
	if !sawIdentity {
		t.Fatal("no identity_change anomaly")
	}
	if _, ok := tracker.Get("192.168.1.1", models.MetricResponseTime); ok {
		t.Error("baseline survived identity change")
	}
}
