// Package metrics exposes Prometheus counters for the interactions endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts pipeline results. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	interactions *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	actionTime   prometheus.Histogram
}

// New creates a Recorder on its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		interactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitevents_interactions_total",
				Help: "Verified interactions by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitevents_requests_rejected_total",
				Help: "Requests rejected before dispatch by error kind",
			},
			[]string{"kind"},
		),
		actionTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gitevents_dispatch_duration_seconds",
				Help:    "Time spent dispatching verified interactions",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Interaction records one dispatched interaction.
func (r *Recorder) Interaction(interactionType, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.interactions.WithLabelValues(interactionType, outcome).Inc()
	r.actionTime.Observe(seconds)
}

// Rejected records one request refused before dispatch.
func (r *Recorder) Rejected(kind string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
