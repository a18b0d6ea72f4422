// Package metrics counts devdag operations with Prometheus collectors. A
// command-line run has no scrape endpoint, so the collected values are
// written out in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devdag"

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	Comparisons *prometheus.CounterVec
	Diffs       *prometheus.CounterVec
	Mappings    prometheus.Counter
	Duration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Graph comparisons by result.",
		}, []string{"result"}),
		Diffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diffs_total",
			Help:      "Graph diffs by mode.",
		}, []string{"mode"}),
		Mappings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "isomorphism_mappings_total",
			Help:      "Isomorphisms found and printed.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent per operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	m.registry.MustRegister(m.Comparisons, m.Diffs, m.Mappings, m.Duration)
	return m
}

// Registry exposes the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records how long op took since start.
func (m *Metrics) Observe(op string, start time.Time) {
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every collected metric to path, replacing the file
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
