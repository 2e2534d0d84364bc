// Package metrics exposes experiment enrollment counters in Prometheus
// format.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/tracking"
)

// Metrics owns a registry so tests and multiple servers do not share
// global collectors.
type Metrics struct {
	registry    *prometheus.Registry
	enrollments *prometheus.CounterVec
	events      *prometheus.CounterVec
}

// New creates a registry with the experiment collectors plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		// Labels: experiment (id), variant (assigned variant id)
		enrollments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "experiment",
			Name:      "enrollments_total",
			Help:      "Users enrolled into an experiment variant",
		}, []string{"experiment", "variant"}),
		// Labels: category
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "tracking",
			Name:      "events_total",
			Help:      "Analytics events stored",
		}, []string{"category"}),
	}
}

// RecordEvent implements tracking.Recorder.
func (m *Metrics) RecordEvent(evt tracking.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(evt.Category).Inc()
	if id, ok := strings.CutPrefix(evt.Category, experiment.EnrollmentCategory+" "); ok {
		m.enrollments.WithLabelValues(id, evt.Action).Inc()
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
