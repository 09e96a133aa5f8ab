// Package metrics defines the Prometheus collectors for the recipe core.
//
// Collectors are registered on a private registry rather than the global
// default, so several repositories (and tests) can coexist in one process.
// A local-only install has no scrape endpoint; WriteTextfile exports the
// registry in the node_exporter textfile format instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "voyage"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	cleanupFailures  prometheus.Counter
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	viewSize         *prometheus.GaugeVec
	snapshotVersion  prometheus.Gauge
	refreshFailures  prometheus.Counter
	autoInboxTotal   *prometheus.CounterVec
}

// New creates a Metrics with its own registry. Go runtime collectors are
// registered alongside the domain collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mutations_total",
			Help:      "Repository mutations by operation and result code.",
		}, []string{"op", "result"}),
		mutationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent in a repository mutation, including the view reload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		cleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cleanup_failures_total",
			Help:      "Backing files that could not be deleted.",
		}),
		cacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "aggregate_cache_hits_total",
			Help:      "Aggregate reads served from the LRU cache.",
		}),
		cacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "aggregate_cache_misses_total",
			Help:      "Aggregate reads that went to the store.",
		}),
		viewSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "view_recipes",
			Help:      "Recipes in each partition as of the last reload.",
		}, []string{"view"}),
		snapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "snapshot_version",
			Help:      "Version of the last published snapshot.",
		}),
		refreshFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refresh_failures_total",
			Help:      "View reloads that failed after a committed mutation.",
		}),
		autoInboxTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "autoinbox_runs_total",
			Help:      "Auto-inbox ticks by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveMutation records one finished mutation. err is classified by its
// model error code; nil records "ok".
func (m *Metrics) ObserveMutation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(model.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	m.mutationsTotal.WithLabelValues(op, result).Inc()
	m.mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// CleanupFailed counts one failed backing-file deletion.
func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// CacheHit counts an aggregate cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// CacheMiss counts an aggregate cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

// SnapshotPublished records the sizes and version of a new snapshot.
func (m *Metrics) SnapshotPublished(version int64, library, inbox int) {
	if m == nil {
		return
	}
	m.snapshotVersion.Set(float64(version))
	m.viewSize.WithLabelValues("library").Set(float64(library))
	m.viewSize.WithLabelValues("inbox").Set(float64(inbox))
}

// RefreshFailed counts a reload failure.
func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshFailures.Inc()
}

// AutoInbox counts one auto-inbox tick with the given outcome
// ("sent", "skipped", "error").
func (m *Metrics) AutoInbox(outcome string) {
	if m == nil {
		return
	}
	m.autoInboxTotal.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry to path in the Prometheus text format.
// The write goes through a temp file and rename, so a collector never reads
// a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
