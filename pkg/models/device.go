package models

import "time"

// DeviceStatus represents the tracked reachability state of a device.
type DeviceStatus string

const (
	DeviceStatusUnknown  DeviceStatus = "unknown"
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusOffline  DeviceStatus = "offline"
	DeviceStatusDegraded DeviceStatus = "degraded"
)

// maxTransitionHistory bounds the per-device transition ring.
const maxTransitionHistory = 10

// StatusTransition records one observed status change.
type StatusTransition struct {
	From      DeviceStatus `json:"from"`
	To        DeviceStatus `json:"to"`
	ChangedAt time.Time    `json:"changed_at"`
}

// DeviceState is the per-address running state folded forward by the change
// detector. Exactly one DeviceState exists per distinct address identity
// (address plus MAC after the first confirmed binding).
type DeviceState struct {
	Address     string       `json:"address"`
	MAC         string       `json:"mac,omitempty"`
	Vendor      string       `json:"vendor,omitempty"`
	Hostname    string       `json:"hostname,omitempty"`
	OSGuess     string       `json:"os_guess,omitempty"`
	Status      DeviceStatus `json:"status"`
	LastSeen    time.Time    `json:"last_seen"`
	FirstSeen   time.Time    `json:"first_seen"`
	OpenPorts   []int        `json:"open_ports,omitempty"`
	ConsecutiveUnreachable int `json:"consecutive_unreachable"`

	Transitions []StatusTransition `json:"transitions,omitempty"`
}

// RecordTransition appends a status transition, keeping the history bounded.
func (d *DeviceState) RecordTransition(from, to DeviceStatus, at time.Time) {
	d.Transitions = append(d.Transitions, StatusTransition{From: from, To: to, ChangedAt: at})
	if len(d.Transitions) > maxTransitionHistory {
		d.Transitions = d.Transitions[len(d.Transitions)-maxTransitionHistory:]
	}
}

// Clone returns a deep copy so detection runs never alias prior state.
func (d *DeviceState) Clone() *DeviceState {
	cp := *d
	cp.OpenPorts = append([]int(nil), d.OpenPorts...)
	cp.Transitions = append([]StatusTransition(nil), d.Transitions...)
	return &cp
}
