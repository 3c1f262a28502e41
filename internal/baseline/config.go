package baseline

import "time"

// Config holds the baseline tracker configuration.
type Config struct {
	Alpha                   float64       `mapstructure:"alpha"`
	MinSamples              int           `mapstructure:"min_samples"`
	RecalibrateAfterSamples int           `mapstructure:"recalibrate_after_samples"`
	RecalibrateAfterAge     time.Duration `mapstructure:"recalibrate_after_age"`
}

// DefaultConfig returns the default baseline tracker configuration.
func DefaultConfig() Config {
	return Config{
		Alpha:                   0.1,
		MinSamples:              10,
		RecalibrateAfterSamples: 500,
		RecalibrateAfterAge:     7 * 24 * time.Hour,
	}
}
