// Package ttl provides functionality for managing time-to-live (TTL) values in the cache.
// It includes utilities for validating and resolving TTL durations and checking
// whether entries have gone stale.
package ttl

import (
	"time"

	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal"
)

// Config represents configuration for TTL behavior
type Config struct {
	// DefaultTTL is used when a caller passes a TTL of 0
	DefaultTTL time.Duration

	// MinTTL is the minimum allowed TTL value
	MinTTL time.Duration

	// MaxTTL is the maximum allowed TTL value
	MaxTTL time.Duration
}

// DefaultConfig returns the default TTL configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		MinTTL:     time.Millisecond,
		MaxTTL:     24 * time.Hour,
	}
}

// Validate validates a TTL value. Zero is accepted and means "use the default".
func Validate(ttl time.Duration) error {
	if ttl < 0 {
		return errors.WrapError("Validate", nil, errors.ErrInvalidTTL)
	}
	return nil
}

// ValidateConfig checks that a configuration is usable
func ValidateConfig(config Config) error {
	if config.DefaultTTL <= 0 || config.MinTTL < 0 {
		return errors.WrapError("ValidateConfig", nil, errors.ErrInvalidTTL)
	}
	if config.MaxTTL > 0 && config.MaxTTL < config.MinTTL {
		return errors.WrapError("ValidateConfig", nil, errors.ErrInvalidTTL)
	}
	return nil
}

// Resolve returns the effective TTL: the default for 0, clamped to [MinTTL, MaxTTL]
func Resolve(ttl time.Duration, config Config) time.Duration {
	if ttl == 0 {
		ttl = config.DefaultTTL
	}

	if ttl < config.MinTTL {
		return config.MinTTL
	}

	if config.MaxTTL > 0 && ttl > config.MaxTTL {
		return config.MaxTTL
	}

	return ttl
}

// IsExpired reports whether an entry created at createdAt is stale at now
func IsExpired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return internal.Expired(createdAt, ttl, now)
}

// Remaining returns how long an entry stays fresh, or 0 if it is already stale
func Remaining(createdAt time.Time, ttl time.Duration, now time.Time) time.Duration {
	left := ttl - now.Sub(createdAt)
	if left < 0 {
		return 0
	}
	return left
}
