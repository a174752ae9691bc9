// Package metrics exposes transfer counters for Prometheus.
//
// A Metrics value owns its own registry so several runs (and tests) can
// coexist in one process. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datallboy/fanout/internal/domain"
)

type Metrics struct {
	registry *prometheus.Registry

	transfersTotal  *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	durationSeconds *prometheus.HistogramVec
	workersActive   prometheus.Gauge
}

// New registers the fanout metrics under namespace on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_transfers_total", namespace),
			Help: "Transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.bytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_transfer_bytes_total", namespace),
			Help: "Bytes written to destinations",
		},
	)

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_transfer_duration_seconds", namespace),
			Help:    "Duration of single transfer attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	m.workersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_workers_active", namespace),
			Help: "Workers currently processing a partition",
		},
	)

	m.registry.MustRegister(
		m.transfersTotal,
		m.bytesTotal,
		m.durationSeconds,
		m.workersActive,
	)

	return m
}

// RecordTransfer counts one finished attempt.
func (m *Metrics) RecordTransfer(outcome domain.Outcome, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(outcome.String()).Inc()
	m.durationSeconds.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
	if bytes > 0 {
		m.bytesTotal.Add(float64(bytes))
	}
}

func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.workersActive.Inc()
}

func (m *Metrics) WorkerDone() {
	if m == nil {
		return
	}
	m.workersActive.Dec()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for callers that gather directly.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
