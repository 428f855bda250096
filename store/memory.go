package store

import (
	"context"
	"sync"
	"time"

	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
)

// memoryStore implements Store with an in-process map
type memoryStore struct {
	mu        sync.RWMutex
	items     map[string]*Entry
	maxSize   int
	clock     clock.Clock
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a new memory store
func NewMemoryStore(opts ...Option) (Store, error) {
	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, errors.WrapError("NewMemoryStore", nil, err)
	}

	m := &memoryStore{
		items:   make(map[string]*Entry),
		maxSize: options.MaxSize,
		clock:   options.Clock,
		stop:    make(chan struct{}),
	}
	if options.CleanupInterval > 0 {
		go m.cleanupLoop(options.CleanupInterval)
	}
	return m, nil
}

// Get retrieves a value from the store
func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, errors.WrapError("Get", key, errors.ErrContextCanceled)
	}

	m.mu.RLock()
	entry, exists := m.items[key]
	m.mu.RUnlock()
	if !exists {
		return nil, false, nil
	}
	if entry.Expired(m.clock.Now()) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && cur == entry {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set stores a value in the store. A full store drops its oldest entry first.
func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return errors.WrapError("Set", key, errors.ErrContextCanceled)
	}

	now := m.clock.Now()
	entry := &Entry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[key]; !exists && m.maxSize > 0 && len(m.items) >= m.maxSize {
		m.dropOldestLocked()
	}
	m.items[key] = entry
	return nil
}

func (m *memoryStore) dropOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.items {
		if !found || e.CreatedAt.Before(oldest) {
			oldestKey, oldest, found = k, e.CreatedAt, true
		}
	}
	if found {
		delete(m.items, oldestKey)
	}
}

// Delete removes a value from the store
func (m *memoryStore) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return errors.WrapError("Delete", key, errors.ErrContextCanceled)
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// DeleteMany deletes multiple keys from the store
func (m *memoryStore) DeleteMany(ctx context.Context, keys []string) error {
	if err := checkContext(ctx); err != nil {
		return errors.WrapError("DeleteMany", nil, errors.ErrContextCanceled)
	}
	m.mu.Lock()
	for _, key := range keys {
		delete(m.items, key)
	}
	m.mu.Unlock()
	return nil
}

// Clear removes all values from the store
func (m *memoryStore) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return errors.WrapError("Clear", nil, errors.ErrContextCanceled)
	}
	m.mu.Lock()
	m.items = make(map[string]*Entry)
	m.mu.Unlock()
	return nil
}

// Keys returns all live keys in the store
func (m *memoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, errors.WrapError("Keys", nil, errors.ErrContextCanceled)
	}
	now := m.clock.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k, e := range m.items {
		if !e.Expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close stops the cleanup goroutine
func (m *memoryStore) Close(context.Context) error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *memoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.purgeExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *memoryStore) purgeExpired() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.items {
		if e.Expired(now) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}
