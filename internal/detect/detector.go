// Package detect folds sealed snapshots into per-device running state and
// emits anomalies for the changes that matter: devices appearing,
// disappearing, slowing down, changing identity, or changing their exposed
// services.
package detect

import (
	"sort"
	"time"

	"github.com/HerbHall/netsentry/internal/scan"
	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaselineReader is the read-only view of baselines the detector consults.
// Satisfied by *baseline.Tracker.
type BaselineReader interface {
	Get(address string, metric models.MetricType) (models.Baseline, bool)
	Established(address string, metric models.MetricType) bool
}

// Result is the outcome of one detection pass.
type Result struct {
	// States is the new per-address state map. Input states are never
	// mutated; every entry is a fresh copy.
	States map[string]*models.DeviceState

	// Anomalies are sorted by (address, type) so identical inputs produce
	// identical output order.
	Anomalies []models.Anomaly
}

// emitFunc collects one anomaly; ID and timestamp are filled centrally.
type emitFunc func(models.Anomaly)

// Detector compares snapshots against prior device state. It holds no
// mutable state of its own: running Detect twice with the same inputs
// yields the same states and anomalies.
type Detector struct {
	cfg       Config
	baselines BaselineReader // nil disables degradation detection
	logger    *zap.Logger
}

// NewDetector creates a detector. baselines may be nil.
func NewDetector(cfg Config, baselines BaselineReader, logger *zap.Logger) *Detector {
	if cfg.OfflineConfirmations < 1 {
		cfg.OfflineConfirmations = DefaultConfig().OfflineConfirmations
	}
	if cfg.DegradationMultiplier <= 0 {
		cfg.DegradationMultiplier = DefaultConfig().DegradationMultiplier
	}
	return &Detector{cfg: cfg, baselines: baselines, logger: logger}
}

// Detect folds one snapshot into the prior state map. Unresolved results
// carry no information and leave their device's state untouched. The
// snapshot's CompletedAt is the observation time for every change.
func (d *Detector) Detect(prior map[string]*models.DeviceState, snap *models.Snapshot) Result {
	now := snap.CompletedAt
	states := make(map[string]*models.DeviceState, len(prior))
	for addr, st := range prior {
		states[addr] = st.Clone()
	}

	var anomalies []models.Anomaly
	emit := emitFunc(func(a models.Anomaly) {
		a.ID = uuid.New().String()
		a.DetectedAt = now
		anomalies = append(anomalies, a)
	})

	for i := range snap.Results {
		r := &snap.Results[i]
		if r.Unresolved {
			continue
		}

		st, known := states[r.Address]
		if !known {
			st = d.firstSight(r, now, emit)
			states[r.Address] = st
			continue
		}

		if r.Reachable {
			d.observeReachable(st, r, now, emit)
		} else {
			d.observeUnreachable(st, now, emit)
		}
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Address != anomalies[j].Address {
			return anomalies[i].Address < anomalies[j].Address
		}
		return anomalies[i].Type < anomalies[j].Type
	})

	if len(anomalies) > 0 {
		d.logger.Info("detection pass complete",
			zap.String("scan_id", snap.ScanID),
			zap.Int("devices", len(states)),
			zap.Int("anomalies", len(anomalies)),
		)
	}

	return Result{States: states, Anomalies: anomalies}
}

// firstSight creates state for an address never seen before and reports
// its first transition out of unknown. Both outcomes are informational:
// a host that was never up cannot have gone down, and a new device is a
// fact to record, not yet an incident.
func (d *Detector) firstSight(r *models.ProbeResult, now time.Time, emit emitFunc) *models.DeviceState {
	st := &models.DeviceState{
		Address:   r.Address,
		FirstSeen: now,
		Status:    models.DeviceStatusOffline,
	}
	evidence := map[string]any{
		"from":       string(models.DeviceStatusUnknown),
		"first_seen": true,
	}

	if r.Reachable {
		st.Status = models.DeviceStatusOnline
		st.LastSeen = now
		st.MAC = r.MAC
		st.Vendor = r.Vendor
		st.Hostname = r.Hostname
		st.OSGuess = r.OSGuess
		st.OpenPorts = r.OpenPorts()
		evidence["mac"] = r.MAC
		evidence["vendor"] = r.Vendor
		evidence["hostname"] = r.Hostname
		evidence["open_ports"] = st.OpenPorts
	} else {
		st.ConsecutiveUnreachable = 1
	}
	evidence["to"] = string(st.Status)
	st.RecordTransition(models.DeviceStatusUnknown, st.Status, now)

	emit(models.Anomaly{
		Address:    r.Address,
		Type:       models.AnomalyStatusChange,
		Severity:   models.SeverityInfo,
		Confidence: 1.0,
		Evidence:   evidence,
	})
	return st
}

// observeReachable handles a reachable result for a known device.
func (d *Detector) observeReachable(st *models.DeviceState, r *models.ProbeResult, now time.Time, emit emitFunc) {
	st.ConsecutiveUnreachable = 0
	st.LastSeen = now

	d.checkIdentity(st, r, emit)

	// Non-empty metadata folds forward; gaps in a single probe don't
	// erase what we already know.
	if r.Hostname != "" {
		st.Hostname = r.Hostname
	}
	if r.OSGuess != "" {
		st.OSGuess = r.OSGuess
	}

	d.checkPorts(st, r, emit)

	switch st.Status {
	case models.DeviceStatusOnline:
		if d.isDegraded(st.Address, r, emit) {
			st.RecordTransition(st.Status, models.DeviceStatusDegraded, now)
			st.Status = models.DeviceStatusDegraded
		}
	case models.DeviceStatusDegraded:
		if !d.isDegraded(st.Address, r, nil) {
			emit(models.Anomaly{
				Address:    st.Address,
				Type:       models.AnomalyStatusChange,
				Severity:   models.SeverityInfo,
				Confidence: 1.0,
				Evidence: map[string]any{
					"from": string(models.DeviceStatusDegraded),
					"to":   string(models.DeviceStatusOnline),
				},
			})
			st.RecordTransition(st.Status, models.DeviceStatusOnline, now)
			st.Status = models.DeviceStatusOnline
		}
	default:
		// offline or unknown: the device came (back) online.
		from := st.Status
		emit(models.Anomaly{
			Address:    st.Address,
			Type:       models.AnomalyStatusChange,
			Severity:   models.SeverityInfo,
			Confidence: 1.0,
			Evidence: map[string]any{
				"from": string(from),
				"to":   string(models.DeviceStatusOnline),
			},
		})
		st.RecordTransition(from, models.DeviceStatusOnline, now)
		st.Status = models.DeviceStatusOnline
	}
}

// observeUnreachable handles an unreachable result for a known device.
// An online device must miss OfflineConfirmations consecutive probes
// before it is declared down.
func (d *Detector) observeUnreachable(st *models.DeviceState, now time.Time, emit emitFunc) {
	st.ConsecutiveUnreachable++

	switch st.Status {
	case models.DeviceStatusOnline, models.DeviceStatusDegraded:
		if st.ConsecutiveUnreachable < d.cfg.OfflineConfirmations {
			return
		}
		from := st.Status
		emit(models.Anomaly{
			Address:    st.Address,
			Type:       models.AnomalyStatusChange,
			Severity:   offlineSeverity(st.ConsecutiveUnreachable, d.cfg.OfflineConfirmations),
			Confidence: 1.0,
			Evidence: map[string]any{
				"from":               string(from),
				"to":                 string(models.DeviceStatusOffline),
				"consecutive_misses": st.ConsecutiveUnreachable,
			},
		})
		st.RecordTransition(from, models.DeviceStatusOffline, now)
		st.Status = models.DeviceStatusOffline
	default:
		// Already offline (or never confirmed online): nothing to report.
	}
}

// checkIdentity flags a MAC change at an address. A swap within the same
// vendor prefix is likely a replaced NIC or DHCP churn; a cross-vendor swap
// is a different physical device answering for that address.
func (d *Detector) checkIdentity(st *models.DeviceState, r *models.ProbeResult, emit emitFunc) {
	if r.MAC == "" {
		return
	}
	if st.MAC == "" {
		// First confirmed binding.
		st.MAC = r.MAC
		st.Vendor = r.Vendor
		return
	}
	if st.MAC == r.MAC {
		return
	}

	sameVendor := scan.SameVendorPrefix(st.MAC, r.MAC)
	severity := models.SeverityHigh
	confidence := 0.9
	if sameVendor {
		severity = models.SeverityLow
		confidence = 0.4
	}
	emit(models.Anomaly{
		Address:    st.Address,
		Type:       models.AnomalyIdentityChange,
		Severity:   severity,
		Confidence: confidence,
		Evidence: map[string]any{
			"old_mac":     st.MAC,
			"new_mac":     r.MAC,
			"old_vendor":  st.Vendor,
			"new_vendor":  r.Vendor,
			"same_vendor": sameVendor,
		},
	})

	st.MAC = r.MAC
	st.Vendor = r.Vendor
}

// checkPorts diffs the device's exposed services. The diff only runs when
// this probe actually examined ports; a scan with port probing disabled
// must not report every service as removed.
func (d *Detector) checkPorts(st *models.DeviceState, r *models.ProbeResult, emit emitFunc) {
	if len(r.Ports) == 0 {
		return
	}

	current := r.OpenPorts()
	added, removed := diffPorts(st.OpenPorts, current)

	if len(added) > 0 {
		emit(models.Anomaly{
			Address:    st.Address,
			Type:       models.AnomalyNewServiceExposed,
			Severity:   models.SeverityMedium,
			Confidence: 1.0,
			Evidence:   map[string]any{"added_ports": added},
		})
	}
	if len(removed) > 0 {
		emit(models.Anomaly{
			Address:    st.Address,
			Type:       models.AnomalyServiceRemoved,
			Severity:   models.SeverityLow,
			Confidence: 1.0,
			Evidence:   map[string]any{"removed_ports": removed},
		})
	}

	st.OpenPorts = current
}

// isDegraded reports whether the response time is anomalous against the
// device's established baseline. No baseline, no judgment: a cold-start
// device is never flagged. When emit is non-nil the anomaly is reported.
func (d *Detector) isDegraded(address string, r *models.ProbeResult, emit emitFunc) bool {
	if d.baselines == nil || !d.baselines.Established(address, models.MetricResponseTime) {
		return false
	}
	b, ok := d.baselines.Get(address, models.MetricResponseTime)
	if !ok {
		return false
	}

	stddev := b.StdDev()
	if stddev < d.cfg.MinStdDevMs {
		stddev = d.cfg.MinStdDevMs
	}
	threshold := b.Mean + d.cfg.DegradationMultiplier*stddev
	if r.ResponseTimeMs <= threshold {
		return false
	}

	if emit != nil {
		zscore := (r.ResponseTimeMs - b.Mean) / stddev
		confidence := zscore / (2 * d.cfg.DegradationMultiplier)
		if confidence > 1 {
			confidence = 1
		}
		emit(models.Anomaly{
			Address:    address,
			Type:       models.AnomalyPerformance,
			Severity:   models.SeverityMedium,
			Confidence: confidence,
			Evidence: map[string]any{
				"response_time_ms": r.ResponseTimeMs,
				"baseline_mean":    b.Mean,
				"baseline_stddev":  b.StdDev(),
				"zscore":           zscore,
			},
		})
	}
	return true
}

// offlineSeverity scales with how many consecutive misses confirmed the
// flip. The counter can sit well past the threshold when state restored
// at startup already carried misses from before the restart.
func offlineSeverity(misses, confirmations int) string {
	if misses >= 2*confirmations {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

// diffPorts returns ports present only in current (added) and only in
// previous (removed), both sorted.
func diffPorts(previous, current []int) (added, removed []int) {
	prev := make(map[int]bool, len(previous))
	for _, p := range previous {
		prev[p] = true
	}
	cur := make(map[int]bool, len(current))
	for _, p := range current {
		cur[p] = true
	}

	for p := range cur {
		if !prev[p] {
			added = append(added, p)
		}
	}
	for p := range prev {
		if !cur[p] {
			removed = append(removed, p)
		}
	}
	sort.Ints(added)
	sort.Ints(removed)
	return added, removed
}
