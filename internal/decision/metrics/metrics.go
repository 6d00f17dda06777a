package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	// Check outcomes, split allow/deny
	Checks *prometheus.CounterVec

	// Denials by reason, for alerting on unusual denial patterns
	Denials *prometheus.CounterVec

	// Full check latency including record scan and reconciliation
	CheckLatency prometheus.Histogram
}

// New creates a Metrics instance with all decision module metrics registered
// on the default registry. Call it once per process.
func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_decision_checks_total",
			Help: "Total consent authorization checks by outcome",
		}, []string{"outcome"}), // outcome: "allow", "deny"

		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_decision_denials_total",
			Help: "Total denied checks by reason",
		}, []string{"reason"}),

		CheckLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_decision_check_duration_seconds",
			Help:    "Duration of consent authorization checks",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementCheck records one check outcome.
func (m *Metrics) IncrementCheck(outcome string) {
	if m != nil {
		m.Checks.WithLabelValues(outcome).Inc()
	}
}

// IncrementDenial records a denial by reason.
func (m *Metrics) IncrementDenial(reason string) {
	if m != nil {
		m.Denials.WithLabelValues(reason).Inc()
	}
}

// ObserveCheckLatency records the duration of one check.
func (m *Metrics) ObserveCheckLatency(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}
