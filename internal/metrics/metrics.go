// Package metrics exposes Prometheus collectors for scheduling operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors recorded by the event service.
type Metrics struct {
	operations   *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	activeEvents prometheus.Gauge
}

// New registers the collectors on the given registerer. A nil registerer
// falls back to the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsched",
			Name:      "operations_total",
			Help:      "Event operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roomsched",
			Name:      "operation_duration_seconds",
			Help:      "Latency of event operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		activeEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomsched",
			Name:      "active_events",
			Help:      "Number of active (non-tombstoned) events.",
		}),
	}

	reg.MustRegister(m.operations, m.durations, m.activeEvents)
	return m
}

// ObserveOperation records one completed operation.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.durations.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetActiveEvents updates the active event gauge.
func (m *Metrics) SetActiveEvents(count int) {
	if m == nil {
		return
	}
	m.activeEvents.Set(float64(count))
}
