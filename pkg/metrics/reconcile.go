package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records reconciliation outcomes and remote submit latency.
type ReconcileMetrics struct {
	outcomes *prometheus.CounterVec
	submit   *prometheus.HistogramVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_total",
		Help: "Reconciliation attempts by flow and outcome.",
	}, []string{"flow", "outcome"})
	submit := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_submit_duration_seconds",
		Help:    "Duration of remote adjustment submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	reg.MustRegister(outcomes, submit)
	return &ReconcileMetrics{
		outcomes: outcomes,
		submit:   submit,
	}
}

// IncOutcome increments the counter for the given flow/outcome pair.
func (m *ReconcileMetrics) IncOutcome(flow, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(flow), normalizeLabel(outcome)).Inc()
}

// ObserveSubmit records the duration of one remote submission.
func (m *ReconcileMetrics) ObserveSubmit(flow string, duration time.Duration) {
	if m == nil || m.submit == nil {
		return
	}
	m.submit.WithLabelValues(normalizeLabel(flow)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return "unknown"
	}
	return strings.ReplaceAll(v, " ", "_")
}
