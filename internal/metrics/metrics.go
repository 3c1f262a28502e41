// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ScanDuration      prometheus.Histogram
	ProbesTotal       *prometheus.CounterVec
	DevicesOnline     prometheus.Gauge
	DevicesOffline    prometheus.Gauge
	AnomaliesTotal    *prometheus.CounterVec
	AlertsDispatched  *prometheus.CounterVec
	AlertsSuppressed  prometheus.Counter
	CyclesTotal       *prometheus.CounterVec
	CacheHitsTotal    prometheus.Counter
}

// New creates and registers the pipeline collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netsentry",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of subnet scans.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "probes_total",
			Help:      "Probe outcomes by result.",
		}, []string{"result"}), // reachable, unreachable, unresolved
		DevicesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netsentry",
			Name:      "devices_online",
			Help:      "Devices online in the most recent snapshot.",
		}),
		DevicesOffline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netsentry",
			Name:      "devices_offline",
			Help:      "Devices offline in the most recent snapshot.",
		}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "anomalies_total",
			Help:      "Anomalies detected by type.",
		}, []string{"type"}),
		AlertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "alerts_dispatched_total",
			Help:      "Alerts dispatched by channel and delivery outcome.",
		}, []string{"channel", "outcome"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "alerts_suppressed_total",
			Help:      "Alert occurrences suppressed by the throttle window.",
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "cycles_total",
			Help:      "Pipeline cycles by outcome.",
		}, []string{"outcome"}), // ok, error
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "probe_cache_hits_total",
			Help:      "Probes served from the per-host result cache.",
		}),
	}

	reg.MustRegister(
		m.ScanDuration, m.ProbesTotal,
		m.DevicesOnline, m.DevicesOffline,
		m.AnomaliesTotal, m.AlertsDispatched, m.AlertsSuppressed,
		m.CyclesTotal, m.CacheHitsTotal,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server returns an *http.Server serving /metrics on addr.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
