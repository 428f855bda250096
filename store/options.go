package store

import (
	"time"

	"github.com/hmanprod/fleetmada-sub008/clock"
	cacheerrors "github.com/hmanprod/fleetmada-sub008/errors"
)

// Default values for store options
const (
	DefaultMaxSize         = 10000
	DefaultCleanupInterval = time.Minute
)

// Options represents store configuration options
type Options struct {
	// MaxSize is the maximum number of keys the memory store holds (0 means unlimited)
	MaxSize int

	// CleanupInterval is how often expired entries are purged (0 disables it)
	CleanupInterval time.Duration

	// Clock supplies the current time
	Clock clock.Clock
}

// NewOptions creates a new Options instance with default values
func NewOptions() *Options {
	return &Options{
		MaxSize:         DefaultMaxSize,
		CleanupInterval: DefaultCleanupInterval,
		Clock:           clock.Real(),
	}
}

// Option is a function that configures store options
type Option func(*Options) error

// WithMaxSize sets the maximum size of the store
func WithMaxSize(size int) Option {
	return func(o *Options) error {
		if size < 0 {
			return cacheerrors.ErrInvalidSize
		}
		o.MaxSize = size
		return nil
	}
}

// WithCleanupInterval sets the purge interval for expired entries
func WithCleanupInterval(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return cacheerrors.ErrInvalidOperation
		}
		o.CleanupInterval = d
		return nil
	}
}

// WithClock sets the time source
func WithClock(c clock.Clock) Option {
	return func(o *Options) error {
		if c == nil {
			return cacheerrors.ErrInvalidOperation
		}
		o.Clock = c
		return nil
	}
}

// Apply applies the given options to the Options struct
func (o *Options) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}
