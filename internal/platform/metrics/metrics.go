package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-level Prometheus metrics.
type Metrics struct {
	BuildInfo       *prometheus.GaugeVec
	RuleSetReloads  *prometheus.CounterVec
	OutboxPublished prometheus.Counter
}

// New creates and registers the process metrics.
func New() *Metrics {
	return &Metrics{
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetops_build_info",
			Help: "Build and environment of the running service",
		}, []string{"environment"}),
		RuleSetReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetops_ruleset_reloads_total",
			Help: "Rule-set catalog reloads by outcome",
		}, []string{"outcome"}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetops_audit_outbox_published_total",
			Help: "Audit outbox records delivered to the sink",
		}),
	}
}

func (m *Metrics) SetBuildInfo(environment string) {
	m.BuildInfo.WithLabelValues(environment).Set(1)
}

func (m *Metrics) IncRuleSetReload(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RuleSetReloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
