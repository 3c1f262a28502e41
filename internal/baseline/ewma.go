// Package baseline maintains per-device statistical expectations using
// exponentially weighted moving averages. The change detector reads these
// baselines to judge whether a response time is anomalous for that device
// rather than against a fixed threshold.
package baseline

// ewmaUpdate folds one sample into an EWMA mean and variance.
// West's incremental form: variance decays alongside the mean so a device
// with naturally jittery latency gets a proportionally wider band.
func ewmaUpdate(mean, variance, sample, alpha float64) (newMean, newVariance float64) {
	diff := sample - mean
	incr := alpha * diff
	newMean = mean + incr
	newVariance = (1 - alpha) * (variance + diff*incr)
	return newMean, newVariance
}
