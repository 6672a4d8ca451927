// Package metrics exports Prometheus metrics for device operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/larsks/devicesim/internal/devicecollection"
)

// Metrics holds the Prometheus metrics for device operations
type Metrics struct {
	onAttempts  *prometheus.CounterVec
	operations  *prometheus.CounterVec
	deviceState *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		onAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesim_on_attempts_total",
				Help: "Total number of turn-on attempts by device and result",
			},
			[]string{"device", "result"},
		),

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesim_operations_total",
				Help: "Total number of device operations by device and operation",
			},
			[]string{"device", "operation"},
		),

		deviceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devicesim_device_on",
				Help: "Current device state (1 = on, 0 = off)",
			},
			[]string{"device"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.onAttempts,
		m.operations,
		m.deviceState,
	)

	return m
}

// Observe records one device operation. Its signature matches
// devicecollection.Observer.
func (m *Metrics) Observe(name string, op string, on bool, err error) {
	m.operations.WithLabelValues(name, op).Inc()

	if op == devicecollection.OpOn {
		result := "allowed"
		if err != nil {
			result = "denied"
		}
		m.onAttempts.WithLabelValues(name, result).Inc()
	}

	m.SetState(name, on)
}

// SetState sets the state gauge for a device
func (m *Metrics) SetState(name string, on bool) {
	value := 0.0
	if on {
		value = 1
	}
	m.deviceState.WithLabelValues(name).Set(value)
}

// Handler returns an HTTP handler serving the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
