// Package monitoring provides the client's metrics and tracing plumbing.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	GateWaitSeconds  prometheus.Histogram
	GateInFlight     prometheus.Gauge
	TokenRotations   prometheus.Counter
	ReloginAttempts  *prometheus.CounterVec
	RosterCacheHits  *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics on reg. Passing a
// private registry keeps tests isolated from the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cartable_upstream_requests_total",
				Help: "Total number of upstream API requests.",
			},
			[]string{"endpoint", "result"},
		),
		UpstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cartable_upstream_latency_seconds",
				Help:    "Latency of upstream API requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		GateWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cartable_gate_wait_seconds",
				Help:    "Time spent waiting for a request gate slot.",
				Buckets: prometheus.DefBuckets,
			},
		),
		GateInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cartable_gate_in_flight",
				Help: "Number of requests currently holding a gate slot.",
			},
		),
		TokenRotations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cartable_token_rotations_total",
				Help: "Total number of session token rotations observed on responses.",
			},
		),
		ReloginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cartable_relogin_attempts_total",
				Help: "Total number of silent re-login attempts.",
			},
			[]string{"result"},
		),
		RosterCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cartable_roster_cache_total",
				Help: "Roster snapshot lookups by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordUpstreamRequest records one completed upstream call.
func (m *Metrics) RecordUpstreamRequest(endpoint, result string, duration time.Duration) {
	m.UpstreamRequests.WithLabelValues(endpoint, result).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordGateWait records how long a request waited for admission.
func (m *Metrics) RecordGateWait(duration time.Duration) {
	m.GateWaitSeconds.Observe(duration.Seconds())
}

// RecordRelogin records one silent re-login attempt.
func (m *Metrics) RecordRelogin(result string) {
	m.ReloginAttempts.WithLabelValues(result).Inc()
}

// RecordRosterLookup records a roster cache hit, miss or staleness eviction.
func (m *Metrics) RecordRosterLookup(outcome string) {
	m.RosterCacheHits.WithLabelValues(outcome).Inc()
}
