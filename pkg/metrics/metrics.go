// Package metrics provides Prometheus metrics for datapipe sessions.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "datapipe"

// Registry holds all datapipe metrics on its own Prometheus registry so that
// sessions in tests do not share counters.
type Registry struct {
	reg *prometheus.Registry

	accesses        *prometheus.CounterVec
	hashMismatches  prometheus.Counter
	hashDuration    prometheus.Histogram
	hashedBytes     prometheus.Counter
	catalogEntries  prometheus.Gauge
	resolveFailures *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accesses_total",
			Help:      "File accesses recorded in the access ledger, by type",
		}, []string{"type"}),
		hashMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_mismatches_total",
			Help:      "Files whose calculated hash differed from the verified hash",
		}),
		hashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hash_duration_seconds",
			Help:      "Time spent hashing file contents",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
		}),
		hashedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashed_bytes_total",
			Help:      "Bytes read while hashing file contents",
		}),
		catalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Entries in the loaded metadata catalog",
		}),
		resolveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_failures_total",
			Help:      "Failed resolutions, by access type",
		}, []string{"type"}),
	}
	r.reg.MustRegister(
		r.accesses,
		r.hashMismatches,
		r.hashDuration,
		r.hashedBytes,
		r.catalogEntries,
		r.resolveFailures,
	)
	return r
}

// Gatherer exposes the underlying registry for export.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordAccess counts one ledger entry of the given type ("read" or "write").
func (r *Registry) RecordAccess(accessType string) {
	r.accesses.WithLabelValues(accessType).Inc()
}

// RecordResolveFailure counts a failed resolution.
func (r *Registry) RecordResolveFailure(accessType string) {
	r.resolveFailures.WithLabelValues(accessType).Inc()
}

// RecordHash records one content hash computation.
func (r *Registry) RecordHash(duration time.Duration, sizeBytes int64) {
	r.hashDuration.Observe(duration.Seconds())
	r.hashedBytes.Add(float64(sizeBytes))
}

// RecordMismatch counts a verified/calculated hash disagreement.
func (r *Registry) RecordMismatch() {
	r.hashMismatches.Inc()
}

// SetCatalogEntries records the size of the loaded catalog.
func (r *Registry) SetCatalogEntries(n int) {
	r.catalogEntries.Set(float64(n))
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// suitable for the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
