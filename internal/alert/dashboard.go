package alert

import (
	"context"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
)

// DashboardNotifier publishes alerts on the event bus so in-process
// consumers (status endpoints, future UIs) see them live.
type DashboardNotifier struct {
	bus plugin.EventBus
}

// NewDashboardNotifier creates an event bus channel.
func NewDashboardNotifier(bus plugin.EventBus) *DashboardNotifier {
	return &DashboardNotifier{bus: bus}
}

func (n *DashboardNotifier) Name() string { return "dashboard" }

func (n *DashboardNotifier) Notify(ctx context.Context, alert *models.Alert, anomaly *models.Anomaly) error {
	n.bus.PublishAsync(ctx, plugin.Event{
		Topic:     TopicAlertTriggered,
		Source:    "alert",
		Timestamp: time.Now(),
		Payload:   AlertEvent{Alert: *alert, Anomaly: *anomaly},
	})
	return nil
}
