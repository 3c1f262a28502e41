package models

import "time"

// AnomalyType identifies one kind of detected change.
type AnomalyType string

const (
	AnomalyStatusChange      AnomalyType = "status_change"
	AnomalyPerformance       AnomalyType = "performance_degradation"
	AnomalyIdentityChange    AnomalyType = "identity_change"
	AnomalyNewServiceExposed AnomalyType = "new_service_exposed"
	AnomalyServiceRemoved    AnomalyType = "service_removed"
)

// Severity levels, lowest to highest.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// severityRank orders severities for routing decisions.
var severityRank = map[string]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// SeverityAtLeast reports whether severity s ranks at or above min.
func SeverityAtLeast(s, min string) bool {
	return severityRank[s] >= severityRank[min]
}

// Anomaly is one detected change, produced by the change detector.
// Immutable once emitted; referenced (not owned) by at most one alert.
type Anomaly struct {
	ID         string         `json:"id"`
	Address    string         `json:"address"`
	Type       AnomalyType    `json:"type"`
	Severity   string         `json:"severity"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	DetectedAt time.Time      `json:"detected_at"`
}

// IsRecovery reports whether this anomaly represents a device returning
// online after an outage or degradation, which resolves open alert
// tracking for its address. A first observation (from "unknown") is not
// a recovery: there is no lineage to close.
func (a *Anomaly) IsRecovery() bool {
	if a.Type != AnomalyStatusChange {
		return false
	}
	to, _ := a.Evidence["to"].(string)
	if to != string(DeviceStatusOnline) {
		return false
	}
	from, _ := a.Evidence["from"].(string)
	return from == string(DeviceStatusOffline) || from == string(DeviceStatusDegraded)
}
