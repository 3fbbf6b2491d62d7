package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance audit emission.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers the compliance audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_audit_compliance_emitted_total",
			Help: "Total number of compliance audit events persisted",
		}, []string{"action"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetops_audit_compliance_persist_failures_total",
			Help: "Total number of compliance audit events that failed to persist",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetops_audit_compliance_persist_duration_seconds",
			Help:    "Latency of synchronous compliance audit writes",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEventsEmitted(action string) {
	m.EventsEmitted.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
