// Package metrics provides Prometheus metrics for the timer service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsetrack/timerd/internal/timer"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	StaleReapedTotal  *prometheus.CounterVec
	ActiveTimers      prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timer_operations_total",
				Help: "Total timer operations by operation and status.",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timer_operation_duration_seconds",
				Help:    "Operation processing duration by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StaleReapedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timer_stale_sessions_reaped_total",
				Help: "Stale active sessions reaped on read, by reason.",
			},
			[]string{"reason"},
		),
		ActiveTimers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "timer_active_sessions",
				Help: "Number of active sessions currently persisted.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.StaleReapedTotal)
	reg.MustRegister(m.ActiveTimers)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation increments the operation counter.
func (m *Metrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveDuration records operation duration.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// StaleReaped implements timer.Observer.
func (m *Metrics) StaleReaped(reason timer.StaleReason) {
	m.StaleReapedTotal.WithLabelValues(string(reason)).Inc()
}

// ActiveDelta implements timer.Observer.
func (m *Metrics) ActiveDelta(delta int) {
	m.ActiveTimers.Add(float64(delta))
}

// SetActiveTimers seeds the gauge, typically from a startup count.
func (m *Metrics) SetActiveTimers(count float64) {
	m.ActiveTimers.Set(count)
}
