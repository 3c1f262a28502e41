package models

import "time"

// PortState describes what a TCP probe observed for a single port.
type PortState string

const (
	PortOpen     PortState = "open"
	PortClosed   PortState = "closed"
	PortFiltered PortState = "filtered"
)

// Port is the probed state of one TCP port on one host.
type Port struct {
	Number int       `json:"number"`
	State  PortState `json:"state"`
}

// ProbeResult is the immutable outcome of one probe against one address.
// A timed-out or failed probe is still a result with Reachable=false;
// probes never surface as errors.
type ProbeResult struct {
	Address        string    `json:"address"`
	Reachable      bool      `json:"reachable"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	PacketLoss     float64   `json:"packet_loss"`
	MAC            string    `json:"mac,omitempty"`
	Vendor         string    `json:"vendor,omitempty"`
	Hostname       string    `json:"hostname,omitempty"`
	OSGuess        string    `json:"os_guess,omitempty"`
	Ports          []Port    `json:"ports,omitempty"`
	Unresolved     bool      `json:"unresolved,omitempty"` // scan budget expired before this address was probed
	FromCache      bool      `json:"from_cache,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// OpenPorts returns the numbers of all ports observed open, in probe order.
func (r *ProbeResult) OpenPorts() []int {
	var open []int
	for _, p := range r.Ports {
		if p.State == PortOpen {
			open = append(open, p.Number)
		}
	}
	return open
}

// SnapshotSummary holds aggregate counts for one sealed snapshot.
type SnapshotSummary struct {
	Total             int     `json:"total"`
	Online            int     `json:"online"`
	Offline           int     `json:"offline"`
	Unresolved        int     `json:"unresolved"`
	FromCache         int     `json:"from_cache"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms,omitempty"`
	MinResponseTimeMs float64 `json:"min_response_time_ms,omitempty"`
	MaxResponseTimeMs float64 `json:"max_response_time_ms,omitempty"`
}

// Snapshot is one sealed result set from a single scan cycle. Results are
// ordered by enumeration order of the target range and contain exactly one
// entry per usable address; addresses the scan budget cut off appear with
// Unresolved=true rather than being silently dropped.
type Snapshot struct {
	ScanID      string          `json:"scan_id"`
	TargetRange string          `json:"target_range"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Results     []ProbeResult   `json:"results"`
	Summary     SnapshotSummary `json:"summary"`
}
