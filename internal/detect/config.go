package detect

// Config holds the change detector configuration.
type Config struct {
	// OfflineConfirmations is the number of consecutive unreachable
	// observations required before an online device is declared offline.
	// A single missed probe is treated as noise.
	OfflineConfirmations int `mapstructure:"offline_confirmations"`

	// DegradationMultiplier is the number of baseline standard deviations
	// a response time must exceed the mean by to count as degraded.
	DegradationMultiplier float64 `mapstructure:"degradation_multiplier"`

	// MinStdDevMs floors the baseline deviation used in the degradation
	// threshold so a near-constant baseline does not flag every sample.
	MinStdDevMs float64 `mapstructure:"min_stddev_ms"`
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		OfflineConfirmations:  2,
		DegradationMultiplier: 3.0,
		MinStdDevMs:           1.0,
	}
}
