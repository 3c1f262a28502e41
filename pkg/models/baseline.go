package models

import (
	"math"
	"time"
)

// MetricType names a tracked per-device metric.
type MetricType string

const (
	MetricResponseTime MetricType = "response_time"
	MetricPacketLoss   MetricType = "packet_loss"
)

// Baseline is the statistical expectation for one (address, metric) pair.
// Mutated only by the baseline tracker; read-only for the change detector.
type Baseline struct {
	Address     string     `json:"address"`
	MetricType  MetricType `json:"metric_type"`
	Mean        float64    `json:"mean"`
	Variance    float64    `json:"variance"`
	SampleCount int        `json:"sample_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StdDev returns the baseline's standard deviation.
func (b *Baseline) StdDev() float64 {
	if b.Variance <= 0 {
		return 0
	}
	return math.Sqrt(b.Variance)
}
