package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the HOS engine.
// Tracks ledger writes, compliance computations, violations and amendments.
type Metrics struct {
	EntriesAppended     *prometheus.CounterVec
	AppendConflicts     *prometheus.CounterVec
	AppendDuration      prometheus.Histogram
	LockWaitDuration    prometheus.Histogram
	EntriesCertified    prometheus.Counter
	ComputeDuration     prometheus.Histogram
	ComputeFailures     prometheus.Counter
	ViolationsRecorded  *prometheus.CounterVec
	ViolationsResolved  *prometheus.CounterVec
	AmendmentsSubmitted prometheus.Counter
	AmendmentDecisions  *prometheus.CounterVec
}

// New creates a new Metrics instance with all HOS metrics registered.
func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_hos_entries_appended_total",
			Help: "Total number of duty-status entries appended, by status",
		}, []string{"status"}),
		AppendConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_hos_append_conflicts_total",
			Help: "Total number of rejected appends, by reason",
		}, []string{"reason"}),
		AppendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetops_hos_append_duration_seconds",
			Help:    "Duration of Append including lock wait and commit",
			Buckets: latencyBuckets,
		}),
		LockWaitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetops_hos_driver_lock_wait_seconds",
			Help:    "Time spent waiting for the per-driver write lock",
			Buckets: latencyBuckets,
		}),
		EntriesCertified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetops_hos_entries_certified_total",
			Help: "Total number of duty-status entries certified",
		}),
		ComputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetops_hos_compute_duration_seconds",
			Help:    "Duration of compliance snapshot computation",
			Buckets: latencyBuckets,
		}),
		ComputeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetops_hos_compute_failures_total",
			Help: "Total number of computations that failed closed",
		}),
		ViolationsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_hos_violations_recorded_total",
			Help: "Total number of violations persisted, by kind and severity",
		}, []string{"kind", "severity"}),
		ViolationsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_hos_violations_resolved_total",
			Help: "Total number of violations explicitly resolved, by kind",
		}, []string{"kind"}),
		AmendmentsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetops_hos_amendments_submitted_total",
			Help: "Total number of amendment requests submitted",
		}),
		AmendmentDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_hos_amendment_decisions_total",
			Help: "Total number of amendment decisions, by outcome",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncAppended(status string) {
	m.EntriesAppended.WithLabelValues(status).Inc()
}

func (m *Metrics) IncAppendConflict(reason string) {
	m.AppendConflicts.WithLabelValues(reason).Inc()
}

// ObserveAppend records the duration of an Append.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAppend(start time.Time) {
	m.AppendDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveLockWait(start time.Time) {
	m.LockWaitDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddCertified(n int) {
	m.EntriesCertified.Add(float64(n))
}

func (m *Metrics) ObserveCompute(start time.Time) {
	m.ComputeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncComputeFailure() {
	m.ComputeFailures.Inc()
}

func (m *Metrics) IncViolationRecorded(kind, severity string) {
	m.ViolationsRecorded.WithLabelValues(kind, severity).Inc()
}

func (m *Metrics) IncViolationResolved(kind string) {
	m.ViolationsResolved.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncAmendmentSubmitted() {
	m.AmendmentsSubmitted.Inc()
}

func (m *Metrics) IncAmendmentDecision(state string) {
	m.AmendmentDecisions.WithLabelValues(state).Inc()
}
