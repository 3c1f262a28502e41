package alert

import "time"

// Config holds the alert engine configuration.
type Config struct {
	// ThrottleBase is the first throttle window after an alert is sent.
	// Each escalation doubles the window up to ThrottleCap.
	ThrottleBase time.Duration `mapstructure:"throttle_base"`
	ThrottleCap  time.Duration `mapstructure:"throttle_cap"`

	// MinSeverity filters anomalies before tracking. Recovery anomalies
	// bypass this filter when they resolve an open tracking entry.
	MinSeverity string `mapstructure:"min_severity"`

	// ChannelTimeout bounds each notifier's delivery attempt.
	ChannelTimeout time.Duration `mapstructure:"channel_timeout"`

	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig configures the outbound webhook channel.
type WebhookConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Secret      string `mapstructure:"secret"`
	MinSeverity string `mapstructure:"min_severity"`
}

// DefaultConfig returns the default alert engine configuration.
func DefaultConfig() Config {
	return Config{
		ThrottleBase:   5 * time.Minute,
		ThrottleCap:    time.Hour,
		MinSeverity:    "info",
		ChannelTimeout: 10 * time.Second,
		Webhook: WebhookConfig{
			MinSeverity: "medium",
		},
	}
}
