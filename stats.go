package fleetcache

import (
	"sort"
	"sync/atomic"
	"time"
)

// counters holds the cache statistics
type counters struct {
	hits           atomic.Int64
	misses         atomic.Int64
	sets           atomic.Int64
	deletes        atomic.Int64
	evictions      atomic.Int64
	expirations    atomic.Int64
	decodeFailures atomic.Int64
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.evictions.Store(0)
	c.expirations.Store(0)
	c.decodeFailures.Store(0)
}

// EntryStat describes one entry in Statistics
type EntryStat struct {
	Key            string    `json:"key"`
	AccessCount    int64     `json:"accessCount"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// Statistics is a point-in-time view of the cache counters
type Statistics struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	TotalRequests  int64   `json:"totalRequests"`
	HitRate        float64 `json:"hitRate"` // percent
	Sets           int64   `json:"sets"`
	Deletes        int64   `json:"deletes"`
	Evictions      int64   `json:"evictions"`
	Expirations    int64   `json:"expirations"`
	DecodeFailures int64   `json:"decodeFailures"`
	Size           int     `json:"size"`
	MaxSize        int     `json:"maxSize"`
	Tags           int     `json:"tags"`

	MostAccessed  []EntryStat `json:"mostAccessed"`
	OldestEntries []EntryStat `json:"oldestEntries"`
}

func hitRate(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// topEntries returns the first n stats after sorting by less. Ties break on key.
func topEntries(all []EntryStat, n int, less func(a, b EntryStat) bool) []EntryStat {
	sorted := append([]EntryStat(nil), all...)
	sort.Slice(sorted, func(i, j int) bool {
		if less(sorted[i], sorted[j]) {
			return true
		}
		if less(sorted[j], sorted[i]) {
			return false
		}
		return sorted[i].Key < sorted[j].Key
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func byAccessCountDesc(a, b EntryStat) bool { return a.AccessCount > b.AccessCount }

func byCreatedAtAsc(a, b EntryStat) bool { return a.CreatedAt.Before(b.CreatedAt) }
