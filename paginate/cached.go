package paginate

import (
	"context"
	"time"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
)

// CachedFetch wraps fetch with a cache. Results are keyed by
// GenerateKey(namespace, query). CacheHit is set when the result did not come
// from this call's own fetch. Concurrent misses for the same query share one
// fetch.
func CachedFetch[T any](cache *fleetcache.Cache[any], namespace string, ttl time.Duration, fetch FetchFunc[T]) FetchFunc[T] {
	return func(ctx context.Context, q Query) (Result[T], error) {
		key := fleetcache.GenerateKey(namespace, q)

		fetched := false
		v, err := cache.Preload(ctx, key, func(ctx context.Context) (any, error) {
			fetched = true
			return fetch(ctx, q)
		}, ttl)
		if err != nil {
			return Result[T]{}, err
		}

		res, ok := v.(Result[T])
		if !ok {
			// a codec hands back the decoded generic form
			if res, err = fleetcache.GetAsContext[Result[T]](ctx, cache, key); err != nil {
				return Result[T]{}, err
			}
		}
		res.CacheHit = !fetched
		return res, nil
	}
}
