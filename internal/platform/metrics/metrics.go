// Package metrics registers the gateway's Prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	RequestsBlocked  *prometheus.CounterVec
	RateLimitBlocks  prometheus.Counter
	BackendCalls     *prometheus.CounterVec
	BackendLatency   *prometheus.HistogramVec
	SecurityEvents   *prometheus.CounterVec
	FanoutMerged     prometheus.Counter
	FanoutDuplicates prometheus.Counter
}

// New creates and registers all gateway metrics. Call once per process; promauto
// panics on duplicate registration.
func New() *Metrics {
	return &Metrics{
		RequestsBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attendgate_requests_blocked_total",
			Help: "Requests rejected by the security gate, by reason",
		}, []string{"reason"}),
		RateLimitBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attendgate_rate_limit_blocks_total",
			Help: "Clients placed into the punitive block cache",
		}),
		BackendCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attendgate_backend_calls_total",
			Help: "Outbound site-collector calls, by backend and outcome",
		}, []string{"backend", "outcome"}),
		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendgate_backend_latency_seconds",
			Help:    "Outbound site-collector call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"backend"}),
		SecurityEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attendgate_security_events_total",
			Help: "Security events recorded, by type and severity",
		}, []string{"type", "severity"}),
		FanoutMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attendgate_fanout_entities_merged_total",
			Help: "Entities folded into merged collections",
		}),
		FanoutDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attendgate_fanout_duplicate_users_total",
			Help: "Duplicate users collapsed during unified user merges",
		}),
	}
}

// ObserveBackendCall records one outbound call outcome with its latency.
func (m *Metrics) ObserveBackendCall(backend, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(backend, outcome).Inc()
	m.BackendLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}
