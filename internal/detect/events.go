package detect

import "github.com/HerbHall/netsentry/pkg/models"

// Event topics published for detection output.
const (
	TopicAnomalyDetected = "detect.anomaly"
	TopicStatusChanged   = "detect.status_changed"
)

// AnomalyEvent is the payload for TopicAnomalyDetected.
type AnomalyEvent struct {
	ScanID  string         `json:"scan_id"`
	Anomaly models.Anomaly `json:"anomaly"`
}

// StatusChangedEvent is the payload for TopicStatusChanged.
type StatusChangedEvent struct {
	Address string              `json:"address"`
	From    models.DeviceStatus `json:"from"`
	To      models.DeviceStatus `json:"to"`
}
