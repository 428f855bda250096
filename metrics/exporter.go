package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterType defines the type of metrics exporter
type ExporterType string

const (
	// StandardExporter uses the in-process atomic implementation
	StandardExporter ExporterType = "standard"
	// PrometheusExporterType uses Prometheus metrics
	PrometheusExporterType ExporterType = "prometheus"
)

// Exporter receives cache and fetch events
type Exporter interface {
	RecordHit()
	RecordMiss()
	RecordEviction(n int)
	RecordExpiration(n int)
	RecordDecodeFailure()
	RecordCompression(uncompressed, compressed int)
	UpdateSize(size int64)
	RecordFetch(d time.Duration, err error)
	RecordStaleFetch()
	// Snapshot returns a thread-safe copy of current metrics
	Snapshot() Snapshot
	// Reset resets the in-process counters
	Reset()
}

// PrometheusOptions configures a PrometheusExporter
type PrometheusOptions struct {
	// Namespace prefixes every metric name
	Namespace string
	// Name is the value of the "cache" label
	Name string
	// Service is the value of the "service" label
	Service string
	// Registerer receives the collectors; prometheus.DefaultRegisterer when nil
	Registerer prometheus.Registerer
}

// PrometheusExporter implements Exporter with Prometheus collectors.
// It also keeps a CacheMetrics so Snapshot works without scraping.
type PrometheusExporter struct {
	hits           prometheus.Counter
	misses         prometheus.Counter
	evictions      prometheus.Counter
	expirations    prometheus.Counter
	decodeFailures prometheus.Counter
	compressed     prometheus.Counter
	compressedSize prometheus.Counter
	size           prometheus.Gauge
	fetches        *prometheus.CounterVec
	staleFetches   prometheus.Counter
	fetchLatency   prometheus.Histogram

	local *CacheMetrics
}

// NewPrometheusExporter creates the collectors and registers them
func NewPrometheusExporter(opts PrometheusOptions) (*PrometheusExporter, error) {
	if opts.Namespace == "" {
		opts.Namespace = "fleetcache"
	}
	if opts.Service == "" {
		opts.Service = "fleetcache"
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"service": opts.Service, "cache": opts.Name}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	e := &PrometheusExporter{
		hits:           counter("cache_hits_total", "Total number of cache hits"),
		misses:         counter("cache_misses_total", "Total number of cache misses"),
		evictions:      counter("cache_evictions_total", "Total number of capacity evictions"),
		expirations:    counter("cache_expirations_total", "Total number of entries dropped for being stale"),
		decodeFailures: counter("cache_decode_failures_total", "Total number of entries that failed to decode"),
		compressed:     counter("cache_compressed_items_total", "Total number of compressed payloads"),
		compressedSize: counter("cache_compressed_bytes_total", "Total bytes written after compression"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_size",
			Help:        "Current number of items in the cache",
			ConstLabels: labels,
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "fetches_total",
			Help:        "Total number of remote fetches by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		staleFetches: counter("fetches_stale_total", "Total number of fetch results discarded as stale"),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_duration_seconds",
			Help:        "Remote fetch latency",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		local: NewCacheMetrics(),
	}

	for _, c := range e.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *PrometheusExporter) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		e.hits, e.misses, e.evictions, e.expirations, e.decodeFailures,
		e.compressed, e.compressedSize, e.size, e.fetches, e.staleFetches, e.fetchLatency,
	}
}

// Unregister removes the collectors from reg
func (e *PrometheusExporter) Unregister(reg prometheus.Registerer) {
	for _, c := range e.collectors() {
		reg.Unregister(c)
	}
}

// RecordHit implements Exporter
func (e *PrometheusExporter) RecordHit() {
	e.hits.Inc()
	e.local.RecordHit()
}

// RecordMiss implements Exporter
func (e *PrometheusExporter) RecordMiss() {
	e.misses.Inc()
	e.local.RecordMiss()
}

// RecordEviction implements Exporter
func (e *PrometheusExporter) RecordEviction(n int) {
	e.evictions.Add(float64(n))
	e.local.RecordEviction(n)
}

// RecordExpiration implements Exporter
func (e *PrometheusExporter) RecordExpiration(n int) {
	e.expirations.Add(float64(n))
	e.local.RecordExpiration(n)
}

// RecordDecodeFailure implements Exporter
func (e *PrometheusExporter) RecordDecodeFailure() {
	e.decodeFailures.Inc()
	e.local.RecordDecodeFailure()
}

// RecordCompression implements Exporter
func (e *PrometheusExporter) RecordCompression(uncompressed, compressed int) {
	e.compressed.Inc()
	e.compressedSize.Add(float64(compressed))
	e.local.RecordCompression(uncompressed, compressed)
}

// UpdateSize implements Exporter
func (e *PrometheusExporter) UpdateSize(size int64) {
	e.size.Set(float64(size))
	e.local.UpdateSize(size)
}

// RecordFetch implements Exporter
func (e *PrometheusExporter) RecordFetch(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.fetches.WithLabelValues(outcome).Inc()
	e.fetchLatency.Observe(d.Seconds())
	e.local.RecordFetch(d, err)
}

// RecordStaleFetch implements Exporter
func (e *PrometheusExporter) RecordStaleFetch() {
	e.staleFetches.Inc()
	e.local.RecordStaleFetch()
}

// Snapshot implements Exporter
func (e *PrometheusExporter) Snapshot() Snapshot {
	return e.local.Snapshot()
}

// Reset clears the in-process counters. Prometheus series stay cumulative.
func (e *PrometheusExporter) Reset() {
	e.local.Reset()
}

// NewExporter creates an exporter of the given type
func NewExporter(exporterType ExporterType, opts PrometheusOptions) (Exporter, error) {
	switch exporterType {
	case PrometheusExporterType:
		return NewPrometheusExporter(opts)
	default:
		return NewCacheMetrics(), nil
	}
}

