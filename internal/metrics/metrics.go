// Package metrics exposes Prometheus instrumentation for the delivery and
// activation paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters of the survey platform around a dedicated
// registry, so tests can instantiate it without global state.
type Metrics struct {
	registry *prometheus.Registry

	// Activations counts validation runs by outcome
	// (ok, cycle, dangling_reference, no_endpoint).
	Activations *prometheus.CounterVec

	// Answers counts submitted answers by outcome
	// (advanced, completed, refused, error).
	Answers *prometheus.CounterVec

	// ResponsesStarted counts started responses.
	ResponsesStarted prometheus.Counter
}

// New creates and registers the metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "activations_total",
			Help:      "Survey activation attempts by outcome.",
		}, []string{"outcome"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "answers_total",
			Help:      "Submitted answers by outcome.",
		}, []string{"outcome"}),
		ResponsesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "responses_started_total",
			Help:      "Responses started.",
		}),
	}

	reg.MustRegister(
		m.Activations,
		m.Answers,
		m.ResponsesStarted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
