package fleetcache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
)

// Loader produces the value for a key on a cache miss
type Loader[V any] func(ctx context.Context) (V, error)

// KeyLoader produces the value for one of several keys
type KeyLoader[V any] func(ctx context.Context, key string) (V, error)

// DefaultPreloadConcurrency bounds PreloadMany
const DefaultPreloadConcurrency = 8

// Preload returns the cached value for key or loads and stores it. Concurrent
// calls for the same key share a single loader call. A panicking loader is
// reported as ErrLoaderPanic.
func (c *Cache[V]) Preload(ctx context.Context, key string, loader Loader[V], ttl time.Duration) (V, error) {
	v, err := c.GetContext(ctx, key)
	if err == nil {
		return v, nil
	}
	if !errors.IsKeyNotFound(err) {
		return v, err
	}

	res, err, shared := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, loader, ttl)
	})
	if shared {
		c.log.Debug("preload shared", logger.Key(key))
	}
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ = res.(V)
	return v, nil
}

func (c *Cache[V]) load(ctx context.Context, key string, loader Loader[V], ttl time.Duration) (v V, err error) {
	defer errors.Recover("Preload", key, errors.ErrLoaderPanic, &err)

	v, err = loader(ctx)
	if err != nil {
		c.log.Warn("preload loader failed", logger.Key(key), logger.Error(err))
		return v, errors.WrapError("Preload", key, err)
	}
	if err := c.SetContext(ctx, key, v, ttl); err != nil {
		return v, err
	}
	return v, nil
}

// PreloadMany preloads keys concurrently and returns the first error
func (c *Cache[V]) PreloadMany(ctx context.Context, keys []string, loader KeyLoader[V], ttl time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultPreloadConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			_, err := c.Preload(gctx, key, func(ctx context.Context) (V, error) {
				return loader(ctx, key)
			}, ttl)
			return err
		})
	}
	return g.Wait()
}
