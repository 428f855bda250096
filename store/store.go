// Package store provides byte-oriented second-level storage backends for the cache.
// Values arrive already encoded by the cache codec; stores only keep bytes and expiry.
package store

import (
	"context"
	"time"
)

// Store defines the interface for L2 storage backends
type Store interface {
	// Get returns the payload stored under key. A missing or expired key reports false.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a payload that expires after ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes several keys
	DeleteMany(ctx context.Context, keys []string) error

	// Clear removes every key owned by the store
	Clear(ctx context.Context) error

	// Keys returns the live keys
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources used by the store
	Close(ctx context.Context) error
}

// Entry is a stored payload with its expiry
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	Expires   time.Time `json:"expires"`
}

// Expired reports whether the entry is stale at now
func (e *Entry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
