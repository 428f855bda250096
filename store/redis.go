package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	cacheErrors "github.com/hmanprod/fleetmada-sub008/errors"
)

// RedisConfig holds Redis L2 configuration
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string
	URL string
	// Prefix namespaces every key written by the store
	Prefix string
	// ConnectTimeout bounds the initial ping
	ConnectTimeout time.Duration
	// ScanBatchSize is the COUNT hint used by Keys and Clear
	ScanBatchSize int64
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:            "redis://localhost:6379/0",
		Prefix:         "fleetcache:",
		ConnectTimeout: 5 * time.Second,
		ScanBatchSize:  1000,
	}
}

// redisStore implements Store on top of a go-redis client
type redisStore struct {
	client    redis.UniversalClient
	prefix    string
	batchSize int64
	owned     bool
}

// NewRedisStore connects to Redis and verifies the connection with a ping
func NewRedisStore(ctx context.Context, cfg RedisConfig) (Store, error) {
	if cfg.URL == "" {
		return nil, cacheErrors.WrapError("NewRedisStore", nil, fmt.Errorf("%w: empty redis URL", cacheErrors.ErrStoreConnection))
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, cacheErrors.WrapError("NewRedisStore", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreConnection, err))
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultRedisConfig().ConnectTimeout
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, cacheErrors.WrapError("NewRedisStore", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreConnection, err))
	}

	s := NewRedisStoreFromClient(client, cfg.Prefix, cfg.ScanBatchSize).(*redisStore)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps ownership of it.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, scanBatchSize int64) Store {
	if scanBatchSize <= 0 {
		scanBatchSize = DefaultRedisConfig().ScanBatchSize
	}
	return &redisStore{
		client:    client,
		prefix:    prefix,
		batchSize: scanBatchSize,
	}
}

func (r *redisStore) key(key string) string {
	return r.prefix + key
}

// Get retrieves a value from Redis
func (r *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cacheErrors.WrapError("Get", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return data, true, nil
}

// Set stores a value with the given expiry. A ttl of 0 keeps the key until deleted.
func (r *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return cacheErrors.WrapError("Set", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

// Delete removes a key from Redis
func (r *redisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return cacheErrors.WrapError("Delete", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

// DeleteMany removes several keys with a single DEL
func (r *redisStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return cacheErrors.WrapError("DeleteMany", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

func (r *redisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", r.batchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear removes every key under the store prefix
func (r *redisStore) Clear(ctx context.Context) error {
	err := r.scan(ctx, func(keys []string) error {
		return r.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return cacheErrors.WrapError("Clear", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

// Keys returns the keys under the store prefix, with the prefix stripped
func (r *redisStore) Keys(ctx context.Context) ([]string, error) {
	var out []string
	err := r.scan(ctx, func(keys []string) error {
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, r.prefix))
		}
		return nil
	})
	if err != nil {
		return nil, cacheErrors.WrapError("Keys", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return out, nil
}

// Close closes the client when the store created it
func (r *redisStore) Close(context.Context) error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

// Ping reports whether Redis is reachable
func (r *redisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
