package alert

import "github.com/HerbHall/netsentry/pkg/models"

// TopicAlertTriggered is published for every dispatched alert.
const TopicAlertTriggered = "alert.triggered"

// AlertEvent is the payload for TopicAlertTriggered.
type AlertEvent struct {
	Alert   models.Alert   `json:"alert"`
	Anomaly models.Anomaly `json:"anomaly"`
}
