package fleetcache

import (
	"context"
	"time"

	"github.com/hmanprod/fleetmada-sub008/errors"
)

// GetMany returns the fresh values among keys. Missing keys are absent from the result.
func (c *Cache[V]) GetMany(ctx context.Context, keys []string) map[string]V {
	result := make(map[string]V, len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			return result
		}
		if v, err := c.GetContext(ctx, key); err == nil {
			result[key] = v
		}
	}
	return result
}

// SetMany stores every entry with the same ttl and stops at the first error
func (c *Cache[V]) SetMany(ctx context.Context, entries map[string]V, ttl time.Duration) error {
	for key, value := range entries {
		if ctx.Err() != nil {
			return errors.WrapError("SetMany", key, errors.ErrContextCanceled)
		}
		if err := c.SetContext(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMany removes keys and returns how many were present in memory
func (c *Cache[V]) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if err := c.checkState(); err != nil {
		return 0, errors.WrapError("DeleteMany", nil, err)
	}
	return c.deleteKeys(ctx, "DeleteMany", keys)
}
