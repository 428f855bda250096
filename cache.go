// Package fleetcache provides a TTL cache with capacity eviction, hit/miss
// statistics, optional compression, tag-based invalidation and an optional
// second-level store.
package fleetcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/metrics"
	"github.com/hmanprod/fleetmada-sub008/policy"
	"github.com/hmanprod/fleetmada-sub008/store"
	"github.com/hmanprod/fleetmada-sub008/ttl"
)

// EventType represents the type of cache event
type EventType int

const (
	EventTypeSet EventType = iota
	EventTypeHit
	EventTypeMiss
	EventTypeDelete
	EventTypeEviction
	EventTypeExpiration
	EventTypeDecodeFailure
	EventTypeClear
)

// String returns a short name for the event type
func (t EventType) String() string {
	switch t {
	case EventTypeSet:
		return "set"
	case EventTypeHit:
		return "hit"
	case EventTypeMiss:
		return "miss"
	case EventTypeDelete:
		return "delete"
	case EventTypeEviction:
		return "eviction"
	case EventTypeExpiration:
		return "expiration"
	case EventTypeDecodeFailure:
		return "decode_failure"
	case EventTypeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Event represents something that happened to a key
type Event struct {
	Type      EventType
	Key       string
	Timestamp time.Time
}

// Callback is a function that handles cache events. Callbacks run after the
// cache lock has been released.
type Callback func(Event)

// entry is a cached value with its bookkeeping
type entry[V any] struct {
	value          V
	payload        []byte // set instead of value when a codec is configured
	createdAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
	tags           []string
}

// l2Envelope is what the cache writes to the L2 store
type l2Envelope struct {
	CreatedAt time.Time     `json:"c"`
	TTL       time.Duration `json:"t"`
	Tags      []string      `json:"g,omitempty"`
	Payload   []byte        `json:"p"`
}

// Cache is a string-keyed TTL cache. All methods are safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	items   map[string]*entry[V]
	policy  policy.Policy[string]
	index   *tagIndex
	stats   counters
	maxSize int

	evictionFraction float64
	ttlConfig        ttl.Config
	codec            *Codec
	store            store.Store
	storeTimeout     time.Duration
	metrics          metrics.Exporter
	log              *slog.Logger
	clock            clock.Clock

	callbacks   []Callback
	callbacksMu sync.RWMutex

	group singleflight.Group

	sweepMu    sync.Mutex
	sweepTimer clock.Timer
	closeOnce  sync.Once
	closed     atomic.Bool
}

// New creates a new cache with the given options
func New[V any](opts ...Option) (*Cache[V], error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, errors.WrapError("New", nil, err)
	}
	if options.Store != nil && options.Codec == nil {
		return nil, errors.WrapError("New", nil, fmt.Errorf("%w: an L2 store requires a codec", errors.ErrInvalidOperation))
	}

	c := &Cache[V]{
		items:            make(map[string]*entry[V]),
		policy:           policy.New[string](options.Policy, policy.WithMaxSize(options.MaxSize)),
		index:            newTagIndex(),
		maxSize:          options.MaxSize,
		evictionFraction: options.EvictionFraction,
		ttlConfig:        options.TTLConfig,
		codec:            options.Codec,
		store:            options.Store,
		storeTimeout:     options.StoreTimeout,
		metrics:          options.Metrics,
		log:              options.Logger.With(logger.Component("fleetcache")),
		clock:            options.Clock,
	}

	if options.CleanupInterval > 0 {
		c.scheduleSweep(options.CleanupInterval)
	}
	return c, nil
}

// MustNew is New for static configurations; it panics on error
func MustNew[V any](opts ...Option) *Cache[V] {
	c, err := New[V](opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Cache[V]) checkState() error {
	if c.closed.Load() {
		return errors.ErrCacheClosed
	}
	return nil
}

// storeContext bounds an L2 call when the caller gave no deadline
func (c *Cache[V]) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.storeTimeout)
}

// OnEvent registers a callback for cache events
func (c *Cache[V]) OnEvent(callback Callback) {
	if callback == nil {
		return
	}
	c.callbacksMu.Lock()
	c.callbacks = append(c.callbacks, callback)
	c.callbacksMu.Unlock()
}

func (c *Cache[V]) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	c.callbacksMu.RLock()
	callbacks := c.callbacks
	c.callbacksMu.RUnlock()
	for _, ev := range events {
		for _, cb := range callbacks {
			cb(ev)
		}
	}
}

func (c *Cache[V]) event(t EventType, key string, now time.Time) Event {
	return Event{Type: t, Key: key, Timestamp: now}
}

// removeLocked drops key from the map, the policy and the index
func (c *Cache[V]) removeLocked(key string, e *entry[V]) {
	delete(c.items, key)
	c.policy.OnDelete(key)
	c.index.remove(key, e.tags)
}

// insertLocked stores e under key, evicting first when a new key hits capacity.
// It returns the evicted keys.
func (c *Cache[V]) insertLocked(key string, e *entry[V]) []string {
	var evicted []string
	if old, exists := c.items[key]; exists {
		c.index.remove(key, old.tags)
	} else if len(c.items) >= c.maxSize {
		n := internal.CeilFraction(c.maxSize, c.evictionFraction)
		for _, victim := range c.policy.EvictN(n) {
			old, ok := c.items[victim]
			if !ok {
				continue
			}
			delete(c.items, victim)
			c.index.remove(victim, old.tags)
			evicted = append(evicted, victim)
		}
	}
	c.items[key] = e
	c.index.add(key, e.tags)
	c.policy.OnSet(key)
	return evicted
}

// decoder turns an entry into the caller's type
type decoder[V, R any] func(e *entry[V]) (R, error)

func (c *Cache[V]) valueDecoder() decoder[V, V] {
	if c.codec == nil {
		return func(e *entry[V]) (V, error) { return e.value, nil }
	}
	return func(e *entry[V]) (V, error) {
		var v V
		err := c.codec.Decode(e.payload, &v)
		return v, err
	}
}

// Get retrieves a value. A missing, stale or undecodable entry returns ErrKeyNotFound.
func (c *Cache[V]) Get(key string) (V, error) {
	return c.GetContext(context.Background(), key)
}

// GetContext is Get with a context for the L2 lookup
func (c *Cache[V]) GetContext(ctx context.Context, key string) (V, error) {
	return lookup(ctx, c, "Get", key, c.valueDecoder())
}

// GetAs reads key from a heterogeneous cache and decodes it into T.
// Without a codec the stored value must already be a T.
func GetAs[T any](c *Cache[any], key string) (T, error) {
	return GetAsContext[T](context.Background(), c, key)
}

// GetAsContext is GetAs with a context for the L2 lookup
func GetAsContext[T any](ctx context.Context, c *Cache[any], key string) (T, error) {
	decode := func(e *entry[any]) (T, error) {
		var out T
		if c.codec != nil {
			err := c.codec.Decode(e.payload, &out)
			return out, err
		}
		v, ok := e.value.(T)
		if !ok {
			return out, errors.WrapError("GetAs", key, fmt.Errorf("%w: stored %T", errors.ErrDecode, e.value))
		}
		return v, nil
	}
	return lookup(ctx, c, "GetAs", key, decode)
}

func lookup[V, R any](ctx context.Context, c *Cache[V], op, key string, decode decoder[V, R]) (R, error) {
	var zero R
	if err := c.checkState(); err != nil {
		return zero, errors.WrapError(op, key, err)
	}
	if key == "" {
		return zero, errors.WrapError(op, key, errors.ErrInvalidKey)
	}

	var events []Event
	defer func() { c.emit(events...) }()

	c.mu.Lock()
	now := c.clock.Now()
	e, ok := c.items[key]
	if ok && ttl.IsExpired(e.createdAt, e.ttl, now) {
		c.removeLocked(key, e)
		c.stats.expirations.Add(1)
		c.metrics.RecordExpiration(1)
		events = append(events, c.event(EventTypeExpiration, key, now))
		ok = false
	}
	if ok {
		v, err := decode(e)
		if err == nil {
			e.accessCount++
			e.lastAccessedAt = now
			c.policy.OnGet(key)
			c.stats.hits.Add(1)
			c.mu.Unlock()
			c.metrics.RecordHit()
			events = append(events, c.event(EventTypeHit, key, now))
			return v, nil
		}
		c.removeLocked(key, e)
		c.mu.Unlock()
		c.decodeFailed(ctx, key, err, now, &events)
		c.metrics.UpdateSize(int64(c.Size()))
		return zero, c.miss(op, key, now, &events)
	}
	c.mu.Unlock()

	if c.store != nil {
		if v, found := loadFromStore(ctx, c, key, decode, now, &events); found {
			return v, nil
		}
	}
	c.metrics.UpdateSize(int64(c.Size()))
	return zero, c.miss(op, key, now, &events)
}

func (c *Cache[V]) miss(op, key string, now time.Time, events *[]Event) error {
	c.stats.misses.Add(1)
	c.metrics.RecordMiss()
	*events = append(*events, c.event(EventTypeMiss, key, now))
	return errors.WrapError(op, key, errors.ErrKeyNotFound)
}

// decodeFailed records an undecodable entry and drops it from the L2 store
func (c *Cache[V]) decodeFailed(ctx context.Context, key string, err error, now time.Time, events *[]Event) {
	c.stats.decodeFailures.Add(1)
	c.metrics.RecordDecodeFailure()
	*events = append(*events, c.event(EventTypeDecodeFailure, key, now))
	c.log.Warn("dropping undecodable cache entry", logger.Key(key), logger.Error(err))
	if c.store != nil {
		sctx, cancel := c.storeContext(ctx)
		defer cancel()
		if derr := c.store.Delete(sctx, key); derr != nil {
			c.log.Warn("l2 delete failed", logger.Key(key), logger.Error(derr))
		}
	}
}

// loadFromStore consults the L2 store after a memory miss and re-populates memory on a hit
func loadFromStore[V, R any](ctx context.Context, c *Cache[V], key string, decode decoder[V, R], now time.Time, events *[]Event) (R, bool) {
	var zero R
	sctx, cancel := c.storeContext(ctx)
	defer cancel()

	data, ok, err := c.store.Get(sctx, key)
	if err != nil {
		c.log.Warn("l2 get failed", logger.Key(key), logger.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var env l2Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.decodeFailed(ctx, key, err, now, events)
		return zero, false
	}
	if ttl.IsExpired(env.CreatedAt, env.TTL, now) {
		if derr := c.store.Delete(sctx, key); derr != nil {
			c.log.Warn("l2 delete failed", logger.Key(key), logger.Error(derr))
		}
		return zero, false
	}

	e := &entry[V]{
		payload:        env.Payload,
		createdAt:      env.CreatedAt,
		ttl:            env.TTL,
		accessCount:    1,
		lastAccessedAt: now,
		tags:           env.Tags,
	}
	v, err := decode(e)
	if err != nil {
		c.decodeFailed(ctx, key, err, now, events)
		return zero, false
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return v, true
	}
	evicted := c.insertLocked(key, e)
	size := len(c.items)
	c.mu.Unlock()

	c.stats.hits.Add(1)
	c.metrics.RecordHit()
	c.recordEvictions(evicted, now, events)
	c.metrics.UpdateSize(int64(size))
	*events = append(*events, c.event(EventTypeHit, key, now))
	return v, true
}

func (c *Cache[V]) recordEvictions(evicted []string, now time.Time, events *[]Event) {
	if len(evicted) == 0 {
		return
	}
	c.stats.evictions.Add(int64(len(evicted)))
	c.metrics.RecordEviction(len(evicted))
	for _, k := range evicted {
		*events = append(*events, c.event(EventTypeEviction, k, now))
	}
	c.log.Debug("evicted cache entries", logger.Count("count", len(evicted)))
}

// Set stores a value. A ttl of 0 uses the default TTL; a negative ttl is rejected.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) error {
	return c.SetContext(context.Background(), key, value, ttl)
}

// SetContext is Set with a context for the L2 write
func (c *Cache[V]) SetContext(ctx context.Context, key string, value V, ttl time.Duration) error {
	return c.set(ctx, "Set", key, value, ttl, nil)
}

// SetTagged stores a value and registers key under each tag
func (c *Cache[V]) SetTagged(key string, value V, ttl time.Duration, tags ...string) error {
	return c.set(context.Background(), "SetTagged", key, value, ttl, tags)
}

func (c *Cache[V]) set(ctx context.Context, op, key string, value V, d time.Duration, tags []string) error {
	if err := c.checkState(); err != nil {
		return errors.WrapError(op, key, err)
	}
	if key == "" {
		return errors.WrapError(op, key, errors.ErrInvalidKey)
	}
	if err := ttl.Validate(d); err != nil {
		return errors.WrapError(op, key, errors.ErrInvalidTTL)
	}
	d = ttl.Resolve(d, c.ttlConfig)
	now := c.clock.Now()

	e := &entry[V]{
		createdAt:      now,
		ttl:            d,
		lastAccessedAt: now,
		tags:           dedupe(tags),
	}
	if c.codec != nil {
		payload, rawLen, err := c.codec.encode(value)
		if err != nil {
			return errors.WrapError(op, key, err)
		}
		if CompressionAlgorithm(payload[0]) != NoCompression {
			c.metrics.RecordCompression(rawLen, len(payload))
		}
		e.payload = payload
	} else {
		e.value = value
	}

	var events []Event
	c.mu.Lock()
	evicted := c.insertLocked(key, e)
	size := len(c.items)
	c.mu.Unlock()

	c.stats.sets.Add(1)
	c.recordEvictions(evicted, now, &events)
	c.metrics.UpdateSize(int64(size))
	events = append(events, c.event(EventTypeSet, key, now))
	c.emit(events...)

	if c.store != nil {
		c.writeThrough(ctx, key, e)
	}
	return nil
}

// writeThrough copies e to the L2 store. Failures are logged; memory stays authoritative.
func (c *Cache[V]) writeThrough(ctx context.Context, key string, e *entry[V]) {
	data, err := json.Marshal(l2Envelope{
		CreatedAt: e.createdAt,
		TTL:       e.ttl,
		Tags:      e.tags,
		Payload:   e.payload,
	})
	if err != nil {
		c.log.Warn("l2 envelope encode failed", logger.Key(key), logger.Error(err))
		return
	}
	sctx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.store.Set(sctx, key, data, e.ttl); err != nil {
		c.log.Warn("l2 set failed", logger.Key(key), logger.Error(err))
	}
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Delete removes one entry and reports whether it was present in memory
func (c *Cache[V]) Delete(key string) (bool, error) {
	return c.DeleteContext(context.Background(), key)
}

// DeleteContext is Delete with a context for the L2 delete
func (c *Cache[V]) DeleteContext(ctx context.Context, key string) (bool, error) {
	if err := c.checkState(); err != nil {
		return false, errors.WrapError("Delete", key, err)
	}

	c.mu.Lock()
	e, existed := c.items[key]
	if existed {
		c.removeLocked(key, e)
	}
	size := len(c.items)
	c.mu.Unlock()

	if existed {
		c.stats.deletes.Add(1)
		c.metrics.UpdateSize(int64(size))
		c.emit(c.event(EventTypeDelete, key, c.clock.Now()))
	}

	if c.store != nil {
		sctx, cancel := c.storeContext(ctx)
		defer cancel()
		if err := c.store.Delete(sctx, key); err != nil {
			return existed, errors.WrapError("Delete", key, err)
		}
	}
	return existed, nil
}

// deleteKeys removes keys from memory and the L2 store and returns how many
// were removed from memory
func (c *Cache[V]) deleteKeys(ctx context.Context, op string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	now := c.clock.Now()
	var events []Event

	c.mu.Lock()
	removed := 0
	for _, k := range keys {
		if e, ok := c.items[k]; ok {
			c.removeLocked(k, e)
			removed++
			events = append(events, c.event(EventTypeDelete, k, now))
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.deletes.Add(int64(removed))
	c.metrics.UpdateSize(int64(size))
	c.emit(events...)

	if c.store != nil {
		sctx, cancel := c.storeContext(ctx)
		defer cancel()
		if err := c.store.DeleteMany(sctx, keys); err != nil {
			return removed, errors.WrapError(op, nil, err)
		}
	}
	return removed, nil
}

// InvalidateTag removes every key registered under tag, in memory and in the
// L2 store, and returns how many distinct keys were removed. With a store, the
// stored envelopes are scanned too, since entries written by another cache
// sharing the store are missing from the local index.
func (c *Cache[V]) InvalidateTag(tag string) int {
	if c.checkState() != nil {
		return 0
	}
	ctx := context.Background()

	c.mu.Lock()
	indexed := c.index.take(tag)
	c.mu.Unlock()

	keys := make(map[string]struct{}, len(indexed))
	for _, k := range indexed {
		keys[k] = struct{}{}
	}
	if c.store != nil {
		for _, k := range c.storeTagged(ctx, tag) {
			keys[k] = struct{}{}
		}
	}

	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}
	if _, err := c.deleteKeys(ctx, "InvalidateTag", list); err != nil {
		c.log.Warn("l2 tag invalidation failed", slog.String("tag", tag), logger.Error(err))
	}
	if len(list) > 0 {
		c.log.Debug("invalidated tag", slog.String("tag", tag), logger.Count("keys", len(list)))
	}
	return len(list)
}

// storeTagged returns the L2 keys whose envelope carries tag
func (c *Cache[V]) storeTagged(ctx context.Context, tag string) []string {
	sctx, cancel := c.storeContext(ctx)
	defer cancel()

	stored, err := c.store.Keys(sctx)
	if err != nil {
		c.log.Warn("l2 key scan failed", slog.String("tag", tag), logger.Error(err))
		return nil
	}
	var out []string
	for _, k := range stored {
		data, ok, err := c.store.Get(sctx, k)
		if err != nil || !ok {
			continue
		}
		var env l2Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		if slices.Contains(env.Tags, tag) {
			out = append(out, k)
		}
	}
	return out
}

// DeletePrefix removes every key starting with prefix, in memory and in the
// L2 store, and returns how many distinct keys were removed
func (c *Cache[V]) DeletePrefix(prefix string) int {
	if c.checkState() != nil {
		return 0
	}
	ctx := context.Background()

	keys := make(map[string]struct{})
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			keys[k] = struct{}{}
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		sctx, cancel := c.storeContext(ctx)
		stored, err := c.store.Keys(sctx)
		cancel()
		if err != nil {
			c.log.Warn("l2 key scan failed", slog.String("prefix", prefix), logger.Error(err))
		}
		for _, k := range stored {
			if strings.HasPrefix(k, prefix) {
				keys[k] = struct{}{}
			}
		}
	}

	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}
	if _, err := c.deleteKeys(ctx, "DeletePrefix", list); err != nil {
		c.log.Warn("l2 prefix delete failed", slog.String("prefix", prefix), logger.Error(err))
	}
	return len(list)
}

// Clear removes every entry, the tag index and the L2 contents
func (c *Cache[V]) Clear() error {
	if err := c.checkState(); err != nil {
		return errors.WrapError("Clear", nil, err)
	}

	c.mu.Lock()
	c.items = make(map[string]*entry[V])
	c.policy.OnClear()
	c.index.clear()
	c.mu.Unlock()

	c.metrics.UpdateSize(0)
	c.emit(c.event(EventTypeClear, "", c.clock.Now()))

	if c.store != nil {
		sctx, cancel := c.storeContext(context.Background())
		defer cancel()
		if err := c.store.Clear(sctx); err != nil {
			return errors.WrapError("Clear", nil, err)
		}
	}
	return nil
}

// Sweep removes all expired entries now and returns how many were removed
func (c *Cache[V]) Sweep() int {
	if c.checkState() != nil {
		return 0
	}
	now := c.clock.Now()
	var events []Event

	c.mu.Lock()
	for k, e := range c.items {
		if ttl.IsExpired(e.createdAt, e.ttl, now) {
			c.removeLocked(k, e)
			events = append(events, c.event(EventTypeExpiration, k, now))
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	if n := len(events); n > 0 {
		c.stats.expirations.Add(int64(n))
		c.metrics.RecordExpiration(n)
		c.log.Debug("swept expired entries", logger.Count("count", n))
	}
	c.metrics.UpdateSize(int64(size))
	c.emit(events...)
	return len(events)
}

// scheduleSweep arms the next background sweep on the cache clock. Each run
// re-arms itself until Close.
func (c *Cache[V]) scheduleSweep(interval time.Duration) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.closed.Load() {
		return
	}
	c.sweepTimer = c.clock.AfterFunc(interval, func() {
		c.Sweep()
		c.scheduleSweep(interval)
	})
}

// Statistics returns a snapshot of the counters and the top entries. It has no side effects.
func (c *Cache[V]) Statistics() Statistics {
	c.mu.Lock()
	all := make([]EntryStat, 0, len(c.items))
	for k, e := range c.items {
		all = append(all, EntryStat{
			Key:            k,
			AccessCount:    e.accessCount,
			CreatedAt:      e.createdAt,
			LastAccessedAt: e.lastAccessedAt,
		})
	}
	tags := c.index.tags()
	c.mu.Unlock()

	hits := c.stats.hits.Load()
	misses := c.stats.misses.Load()
	return Statistics{
		Hits:           hits,
		Misses:         misses,
		TotalRequests:  hits + misses,
		HitRate:        hitRate(hits, hits+misses),
		Sets:           c.stats.sets.Load(),
		Deletes:        c.stats.deletes.Load(),
		Evictions:      c.stats.evictions.Load(),
		Expirations:    c.stats.expirations.Load(),
		DecodeFailures: c.stats.decodeFailures.Load(),
		Size:           len(all),
		MaxSize:        c.maxSize,
		Tags:           tags,
		MostAccessed:   topEntries(all, StatisticsTopN, byAccessCountDesc),
		OldestEntries:  topEntries(all, StatisticsTopN, byCreatedAtAsc),
	}
}

// ResetStatistics zeroes the counters. Entries are untouched.
func (c *Cache[V]) ResetStatistics() {
	c.stats.reset()
	c.metrics.Reset()
}

// Size returns the number of entries in memory, stale ones included until swept
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the in-memory keys in sorted order
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Close stops the sweeper and closes the L2 store. It is idempotent.
func (c *Cache[V]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.sweepMu.Lock()
		if c.sweepTimer != nil {
			c.sweepTimer.Stop()
		}
		c.sweepMu.Unlock()

		c.mu.Lock()
		c.items = make(map[string]*entry[V])
		c.policy.OnClear()
		c.index.clear()
		c.mu.Unlock()

		c.callbacksMu.Lock()
		c.callbacks = nil
		c.callbacksMu.Unlock()

		if c.store != nil {
			sctx, cancel := c.storeContext(context.Background())
			defer cancel()
			err = c.store.Close(sctx)
		}
	})
	return err
}
