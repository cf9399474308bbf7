// SPDX-License-Identifier: MPL-2.0

// Package telemetry publishes invocation metrics in Prometheus format.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the runner records into. A nil *Metrics
// records nothing, so callers never guard their call sites.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	items       prometheus.Counter
	duration    prometheus.Histogram
}

// New returns a metrics set backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graft_invocations_total",
			Help: "Transform invocations by terminal state.",
		}, []string{"state"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graft_items_emitted_total",
			Help: "Data items streamed out of transform invocations.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graft_invocation_seconds",
			Help:    "Wall time of transform invocations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.invocations, m.items, m.duration)
	return m
}

// RecordInvocation counts one finished invocation under its terminal state
// and observes its duration.
func (m *Metrics) RecordInvocation(state string, seconds float64) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(state).Inc()
	m.duration.Observe(seconds)
}

// RecordItems counts data items streamed to callers.
func (m *Metrics) RecordItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.Add(float64(n))
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Expose serves the scrape endpoint on addr in the background. An empty
// addr disables the endpoint.
func Expose(m *Metrics, addr string) {
	if m == nil || addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		_ = http.ListenAndServe(addr, mux)
	}()
}
