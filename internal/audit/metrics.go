package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit publisher.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	EventsEnqueued  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsSampled   prometheus.Counter
	EventsProcessed prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all audit publisher metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_audit_queue_depth",
			Help: "Current number of events in the audit publisher queue",
		}),
		EventsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_audit_events_enqueued_total",
			Help: "Total number of audit events successfully enqueued",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to full buffer",
		}),
		EventsSampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_audit_events_sampled_total",
			Help: "Total number of operations events dropped by sampling",
		}),
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_audit_events_processed_total",
			Help: "Total number of audit events successfully persisted",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_audit_persist_duration_seconds",
			Help:    "Time taken to persist an audit event to the sinks",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// IncQueueDepth increments the queue depth gauge.
func (m *Metrics) IncQueueDepth() { m.QueueDepth.Inc() }

// DecQueueDepth decrements the queue depth gauge.
func (m *Metrics) DecQueueDepth() { m.QueueDepth.Dec() }

// IncEventsEnqueued increments the enqueued events counter.
func (m *Metrics) IncEventsEnqueued() { m.EventsEnqueued.Inc() }

// IncEventsDropped increments the dropped events counter.
func (m *Metrics) IncEventsDropped() { m.EventsDropped.Inc() }

// IncEventsSampled increments the sampled-out events counter.
func (m *Metrics) IncEventsSampled() { m.EventsSampled.Inc() }

// IncEventsProcessed increments the processed events counter.
func (m *Metrics) IncEventsProcessed() { m.EventsProcessed.Inc() }

// IncPersistFailures increments the persistence failure counter.
func (m *Metrics) IncPersistFailures() { m.PersistFailures.Inc() }

// ObservePersistDuration records how long one sink append took.
func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
