package alert

import (
	"context"

	"github.com/HerbHall/netsentry/pkg/models"
	"go.uber.org/zap"
)

// Notifier delivers one alert over one channel. Implementations must be
// safe for concurrent use; the engine fans out across channels.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *models.Alert, anomaly *models.Anomaly) error
}

// LogNotifier writes alerts to the structured log. It is the fallback
// channel that is always available and never fails.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log channel.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, alert *models.Alert, anomaly *models.Anomaly) error {
	n.logger.Warn("alert",
		zap.String("alert_id", alert.ID),
		zap.String("address", anomaly.Address),
		zap.String("type", string(anomaly.Type)),
		zap.String("severity", alert.Severity),
		zap.Int("escalation_level", alert.EscalationLevel),
		zap.String("message", alert.Message),
	)
	return nil
}
