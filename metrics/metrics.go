// Package metrics provides functionality for collecting and reporting cache and
// pagination performance metrics.
package metrics

import (
	"sync/atomic"
	"time"
)

// CacheMetrics is the standard in-process Exporter backed by atomic counters
type CacheMetrics struct {
	// Cache
	Size              atomic.Int64
	Hits              atomic.Int64
	Misses            atomic.Int64
	Evictions         atomic.Int64
	Expirations       atomic.Int64
	DecodeFailures    atomic.Int64
	LastOperationTime atomic.Value // time.Time

	// Compression
	CompressedItems   atomic.Int64
	CompressedBytes   atomic.Int64
	UncompressedBytes atomic.Int64

	// Fetches
	Fetches       atomic.Int64
	FetchErrors   atomic.Int64
	StaleFetches  atomic.Int64
	FetchNanos    atomic.Int64
	LastFetchTime atomic.Value // time.Time
}

// Snapshot is a thread-safe copy of metrics
type Snapshot struct {
	Size              int64
	Hits              int64
	Misses            int64
	Evictions         int64
	Expirations       int64
	DecodeFailures    int64
	LastOperationTime time.Time

	CompressedItems   int64
	CompressedBytes   int64
	UncompressedBytes int64

	Fetches       int64
	FetchErrors   int64
	StaleFetches  int64
	FetchDuration time.Duration
	LastFetchTime time.Time
}

// HitRatio returns hits / (hits + misses), or 0 when there were no lookups
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CompressionRatio returns compressed / uncompressed bytes, or 0 when nothing was compressed
func (s Snapshot) CompressionRatio() float64 {
	if s.UncompressedBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.UncompressedBytes)
}

// NewCacheMetrics creates a new CacheMetrics instance
func NewCacheMetrics() *CacheMetrics {
	m := &CacheMetrics{}
	m.LastOperationTime.Store(time.Time{})
	m.LastFetchTime.Store(time.Time{})
	return m
}

// Snapshot returns a thread-safe copy of current metrics
func (m *CacheMetrics) Snapshot() Snapshot {
	return Snapshot{
		Size:              m.Size.Load(),
		Hits:              m.Hits.Load(),
		Misses:            m.Misses.Load(),
		Evictions:         m.Evictions.Load(),
		Expirations:       m.Expirations.Load(),
		DecodeFailures:    m.DecodeFailures.Load(),
		LastOperationTime: m.LastOperationTime.Load().(time.Time),
		CompressedItems:   m.CompressedItems.Load(),
		CompressedBytes:   m.CompressedBytes.Load(),
		UncompressedBytes: m.UncompressedBytes.Load(),
		Fetches:           m.Fetches.Load(),
		FetchErrors:       m.FetchErrors.Load(),
		StaleFetches:      m.StaleFetches.Load(),
		FetchDuration:     time.Duration(m.FetchNanos.Load()),
		LastFetchTime:     m.LastFetchTime.Load().(time.Time),
	}
}

// RecordHit records a cache hit
func (m *CacheMetrics) RecordHit() {
	m.Hits.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordMiss records a cache miss
func (m *CacheMetrics) RecordMiss() {
	m.Misses.Add(1)
	m.LastOperationTime.Store(time.Now())
}

// RecordEviction records n capacity evictions
func (m *CacheMetrics) RecordEviction(n int) {
	m.Evictions.Add(int64(n))
}

// RecordExpiration records n entries dropped for being stale
func (m *CacheMetrics) RecordExpiration(n int) {
	m.Expirations.Add(int64(n))
}

// RecordDecodeFailure records an entry that could not be decoded
func (m *CacheMetrics) RecordDecodeFailure() {
	m.DecodeFailures.Add(1)
}

// RecordCompression records one compressed payload
func (m *CacheMetrics) RecordCompression(uncompressed, compressed int) {
	m.CompressedItems.Add(1)
	m.UncompressedBytes.Add(int64(uncompressed))
	m.CompressedBytes.Add(int64(compressed))
}

// UpdateSize updates the current cache size
func (m *CacheMetrics) UpdateSize(size int64) {
	m.Size.Store(size)
}

// RecordFetch records a completed fetch and its latency
func (m *CacheMetrics) RecordFetch(d time.Duration, err error) {
	m.Fetches.Add(1)
	m.FetchNanos.Add(int64(d))
	if err != nil {
		m.FetchErrors.Add(1)
	}
	m.LastFetchTime.Store(time.Now())
}

// RecordStaleFetch records a fetch whose result was discarded
func (m *CacheMetrics) RecordStaleFetch() {
	m.StaleFetches.Add(1)
}

// Reset resets all metrics to zero
func (m *CacheMetrics) Reset() {
	m.Size.Store(0)
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Evictions.Store(0)
	m.Expirations.Store(0)
	m.DecodeFailures.Store(0)
	m.LastOperationTime.Store(time.Time{})
	m.CompressedItems.Store(0)
	m.CompressedBytes.Store(0)
	m.UncompressedBytes.Store(0)
	m.Fetches.Store(0)
	m.FetchErrors.Store(0)
	m.StaleFetches.Store(0)
	m.FetchNanos.Store(0)
	m.LastFetchTime.Store(time.Time{})
}
