package baseline

import (
	"sync"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"go.uber.org/zap"
)

type metricKey struct {
	address string
	metric  models.MetricType
}

// Tracker owns the per-(address, metric) baselines. Updates fold samples
// forward with EWMA; reads return copies so the change detector never
// observes a baseline mid-update.
//
// Callers feed only samples from reachable probes. Offline devices produce
// no latency data, and folding zeros in would drag every baseline toward
// an expectation the device never exhibited.
type Tracker struct {
	cfg       Config
	mu        sync.Mutex
	baselines map[metricKey]*models.Baseline
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config, logger *zap.Logger) *Tracker {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultConfig().Alpha
	}
	return &Tracker{
		cfg:       cfg,
		baselines: make(map[metricKey]*models.Baseline),
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Update folds one sample into the baseline for (address, metric), creating
// it seeded from the sample if absent. Returns a copy of the updated baseline.
func (t *Tracker) Update(address string, metric models.MetricType, sample float64) models.Baseline {
	now := t.nowFunc().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	key := metricKey{address: address, metric: metric}
	b, ok := t.baselines[key]
	if !ok {
		b = &models.Baseline{
			Address:    address,
			MetricType: metric,
			Mean:       sample,
			CreatedAt:  now,
		}
		t.baselines[key] = b
	} else {
		if t.needsRecalibration(b, now) {
			t.recalibrate(b, now)
		}
		b.Mean, b.Variance = ewmaUpdate(b.Mean, b.Variance, sample, t.cfg.Alpha)
	}

	b.SampleCount++
	b.UpdatedAt = now
	return *b
}

// Get returns a copy of the baseline for (address, metric), if one exists.
func (t *Tracker) Get(address string, metric models.MetricType) (models.Baseline, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.baselines[metricKey{address: address, metric: metric}]
	if !ok {
		return models.Baseline{}, false
	}
	return *b, true
}

// Established reports whether the baseline for (address, metric) has enough
// samples to be used for anomaly judgments.
func (t *Tracker) Established(address string, metric models.MetricType) bool {
	b, ok := t.Get(address, metric)
	return ok && b.SampleCount >= t.cfg.MinSamples
}

// All returns copies of every tracked baseline.
func (t *Tracker) All() []models.Baseline {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Baseline, 0, len(t.baselines))
	for _, b := range t.baselines {
		out = append(out, *b)
	}
	return out
}

// Load seeds the tracker from persisted baselines, replacing any existing
// entry for the same key. Called once at startup before the first cycle.
func (t *Tracker) Load(baselines []models.Baseline) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range baselines {
		b := baselines[i]
		t.baselines[metricKey{address: b.Address, metric: b.MetricType}] = &b
	}
}

// Forget drops all baselines for an address. Used when a device's identity
// changes: the old device's latency profile says nothing about the new one.
func (t *Tracker) Forget(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.baselines {
		if key.address == address {
			delete(t.baselines, key)
		}
	}
}

func (t *Tracker) needsRecalibration(b *models.Baseline, now time.Time) bool {
	if t.cfg.RecalibrateAfterSamples > 0 && b.SampleCount >= t.cfg.RecalibrateAfterSamples {
		return true
	}
	if t.cfg.RecalibrateAfterAge > 0 && now.Sub(b.CreatedAt) >= t.cfg.RecalibrateAfterAge {
		return true
	}
	return false
}

// recalibrate reseeds an aged baseline from its current mean. The mean
// survives; variance and sample count restart so the baseline re-adapts
// quickly to the device's current behavior.
func (t *Tracker) recalibrate(b *models.Baseline, now time.Time) {
	t.logger.Debug("recalibrating baseline",
		zap.String("address", b.Address),
		zap.String("metric", string(b.MetricType)),
		zap.Int("samples", b.SampleCount),
		zap.Duration("age", now.Sub(b.CreatedAt)),
	)
	b.Variance = 0
	b.SampleCount = 0
	b.CreatedAt = now
}
