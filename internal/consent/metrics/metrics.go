// Package metrics provides Prometheus collectors for consent lifecycle
// operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the consent lifecycle service.
type Metrics struct {
	ConsentsCreated      prometheus.Counter
	LifecycleTransitions *prometheus.CounterVec
	ActiveConsents       prometheus.Gauge
	OperationLatency     *prometheus.HistogramVec
}

// New registers and returns consent metrics collectors on the default
// registry. Call it once per process.
func New() *Metrics {
	return &Metrics{
		ConsentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_consents_created_total",
			Help: "Total number of consent records created",
		}),
		LifecycleTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_consent_transitions_total",
			Help: "Total number of consent lifecycle transitions, labeled by action",
		}, []string{"action"}),
		ActiveConsents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_active_consents",
			Help: "Current number of consents in the ACTIVE status",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aggregator_consent_operation_latency_seconds",
			Help:    "Latency of consent service operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// IncrementCreated counts one consent creation.
func (m *Metrics) IncrementCreated() {
	m.ConsentsCreated.Inc()
}

// IncrementTransition counts one lifecycle transition by action name.
// Implicit expiry is counted under "expire".
func (m *Metrics) IncrementTransition(action string) {
	m.LifecycleTransitions.WithLabelValues(action).Inc()
}

// IncrementActiveConsents tracks a record entering ACTIVE.
func (m *Metrics) IncrementActiveConsents() {
	m.ActiveConsents.Inc()
}

// DecrementActiveConsents tracks a record leaving ACTIVE.
func (m *Metrics) DecrementActiveConsents() {
	m.ActiveConsents.Dec()
}

// ObserveOperationLatency records the latency of a service operation.
func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
