// Package metrics exposes cart counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the cart collectors. A nil *Recorder records nothing, so
// components can take one optionally.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	remote     *prometheus.CounterVec
	items      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		remote: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_remote_requests_total",
			Help: "Catalog API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_items",
			Help: "Distinct entries in the most recently mutated cart.",
		}),
	}
	r.registry.MustRegister(r.operations, r.remote, r.items)
	return r
}

func (r *Recorder) Operation(op, outcome string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, outcome).Inc()
}

func (r *Recorder) RemoteRequest(endpoint, outcome string) {
	if r == nil {
		return
	}
	r.remote.WithLabelValues(endpoint, outcome).Inc()
}

func (r *Recorder) CartSize(n int) {
	if r == nil {
		return
	}
	r.items.Set(float64(n))
}

// Registry is exposed for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
