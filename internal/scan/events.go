package scan

import (
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
)

// Event topics published by the scanner.
const (
	TopicScanStarted   = "scan.started"
	TopicScanCompleted = "scan.completed"
)

// ScanStartedEvent is the payload for TopicScanStarted.
type ScanStartedEvent struct {
	ScanID      string    `json:"scan_id"`
	TargetRange string    `json:"target_range"`
	Hosts       int       `json:"hosts"`
	StartedAt   time.Time `json:"started_at"`
}

// ScanCompletedEvent is the payload for TopicScanCompleted.
type ScanCompletedEvent struct {
	ScanID      string                 `json:"scan_id"`
	TargetRange string                 `json:"target_range"`
	Summary     models.SnapshotSummary `json:"summary"`
	CompletedAt time.Time              `json:"completed_at"`
}
