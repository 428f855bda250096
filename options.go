package fleetcache

import (
	"log/slog"
	"time"

	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/metrics"
	"github.com/hmanprod/fleetmada-sub008/policy"
	"github.com/hmanprod/fleetmada-sub008/store"
	"github.com/hmanprod/fleetmada-sub008/ttl"
)

// Default values for cache options
const (
	DefaultMaxSize          = 1000
	DefaultEvictionFraction = 0.10
	DefaultStoreTimeout     = 2 * time.Second
	// StatisticsTopN bounds the mostAccessed and oldestEntries lists
	StatisticsTopN = 10
)

// Options represents cache configuration options
type Options struct {
	// MaxSize is the maximum number of entries held in memory
	MaxSize int

	// TTLConfig is the configuration for TTL behavior
	TTLConfig ttl.Config

	// EvictionFraction is the share of MaxSize dropped when a new key hits capacity
	EvictionFraction float64

	// Policy names the eviction policy
	Policy policy.Name

	// CleanupInterval runs Sweep in the background (0 disables the sweeper)
	CleanupInterval time.Duration

	// Codec encodes values; nil stores them as-is
	Codec *Codec

	// Store is an optional L2 backend. It is only used together with a Codec.
	Store store.Store

	// StoreTimeout bounds each L2 call made without a caller context
	StoreTimeout time.Duration

	// Metrics receives cache events
	Metrics metrics.Exporter

	// Logger receives debug and warning logs
	Logger *slog.Logger

	// Clock supplies the current time
	Clock clock.Clock
}

// Option is a function that configures cache options
type Option func(*Options)

// WithMaxSize sets the maximum size of the cache
func WithMaxSize(size int) Option {
	return func(o *Options) {
		o.MaxSize = size
	}
}

// WithTTLConfig sets the TTL configuration
func WithTTLConfig(config ttl.Config) Option {
	return func(o *Options) {
		o.TTLConfig = config
	}
}

// WithDefaultTTL sets the TTL used when Set is called with 0
func WithDefaultTTL(d time.Duration) Option {
	return func(o *Options) {
		o.TTLConfig.DefaultTTL = d
	}
}

// WithEvictionFraction sets the share of MaxSize evicted at capacity
func WithEvictionFraction(fraction float64) Option {
	return func(o *Options) {
		o.EvictionFraction = fraction
	}
}

// WithPolicy sets the eviction policy
func WithPolicy(name policy.Name) Option {
	return func(o *Options) {
		o.Policy = name
	}
}

// WithCleanupInterval sets the background sweep interval
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.CleanupInterval = interval
	}
}

// WithCodec enables JSON encoding and optional compression of values
func WithCodec(c *Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithStore sets the L2 backend
func WithStore(s store.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

// WithStoreTimeout bounds L2 calls made without a caller context
func WithStoreTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.StoreTimeout = d
	}
}

// WithMetrics sets the metrics exporter
func WithMetrics(m metrics.Exporter) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithClock sets the time source
func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// DefaultOptions returns the default cache options
func DefaultOptions() *Options {
	return &Options{
		MaxSize:          DefaultMaxSize,
		TTLConfig:        ttl.DefaultConfig(),
		EvictionFraction: DefaultEvictionFraction,
		Policy:           policy.NameLRU,
		CleanupInterval:  time.Minute,
		StoreTimeout:     DefaultStoreTimeout,
		Clock:            clock.Real(),
	}
}

// validate fills nil collaborators and rejects unusable settings
func (o *Options) validate() error {
	if o.MaxSize <= 0 {
		return errors.ErrInvalidSize
	}
	if o.EvictionFraction <= 0 || o.EvictionFraction > 1 {
		return errors.ErrInvalidFraction
	}
	if err := ttl.ValidateConfig(o.TTLConfig); err != nil {
		return err
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewCacheMetrics()
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	return nil
}
