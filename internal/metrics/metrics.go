// Package metrics records rebuild and deletion counters in a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "histree"

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	fetchFailures   prometheus.Counter
	deletions       *prometheus.CounterVec
	forestNodes     prometheus.Gauge
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "History forest rebuilds by result.",
		}, []string{"result"}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Time spent fetching and building the history forest.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visit_fetch_failures_total",
			Help:      "Per-URL visit lookups that failed and were skipped.",
		}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Per-URL history deletions by result.",
		}, []string{"result"}),
		forestNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forest_nodes",
			Help:      "Nodes in the most recently built forest.",
		}),
	}
	m.registry.MustRegister(m.rebuilds, m.rebuildDuration, m.fetchFailures, m.deletions, m.forestNodes)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RebuildFinished records one rebuild.
func (m *Metrics) RebuildFinished(ok bool, elapsed time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(result(ok)).Inc()
	m.rebuildDuration.Observe(elapsed.Seconds())
	m.forestNodes.Set(float64(nodes))
}

// VisitFetchFailed records a skipped per-URL visit lookup.
func (m *Metrics) VisitFetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

// Deleted records one per-URL deletion.
func (m *Metrics) Deleted(ok bool) {
	if m == nil {
		return
	}
	m.deletions.WithLabelValues(result(ok)).Inc()
}

// WriteTextfile writes the registry in the text exposition format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
