package paginate

import (
	"log/slog"
	"time"

	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/metrics"
)

// Default values for controller options
const (
	DefaultPageSize = 20
	DefaultMaxPages = 100
	DefaultDebounce = 300 * time.Millisecond
)

// DefaultSearchFields are the record fields matched by the search query
var DefaultSearchFields = []string{"title", "vehicleName", "inspectorName", "location"}

// Options represents controller configuration options
type Options[T any] struct {
	// PageSize is the number of items per page
	PageSize int

	// MaxPages caps how many pages LoadMore accumulates
	MaxPages int

	// Debounce is the search input delay
	Debounce time.Duration

	// InfiniteScroll enables LoadMore
	InfiniteScroll bool

	// VirtualScrolling makes the page view return every filtered item
	VirtualScrolling bool

	// SearchFields are the fields matched by the search query
	SearchFields []string

	// Accessor reads a named field from an item
	Accessor Accessor[T]

	// Fetch switches the controller to remote mode
	Fetch FetchFunc[T]

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics metrics.Exporter
}

// Option is a function that configures controller options
type Option[T any] func(*Options[T])

// WithPageSize sets the page size
func WithPageSize[T any](size int) Option[T] {
	return func(o *Options[T]) {
		o.PageSize = size
	}
}

// WithMaxPages caps infinite scroll
func WithMaxPages[T any](pages int) Option[T] {
	return func(o *Options[T]) {
		o.MaxPages = pages
	}
}

// WithDebounce sets the search debounce window
func WithDebounce[T any](d time.Duration) Option[T] {
	return func(o *Options[T]) {
		o.Debounce = d
	}
}

// WithInfiniteScroll enables LoadMore
func WithInfiniteScroll[T any](enable bool) Option[T] {
	return func(o *Options[T]) {
		o.InfiniteScroll = enable
	}
}

// WithVirtualScrolling makes PageItems hold every filtered item
func WithVirtualScrolling[T any](enable bool) Option[T] {
	return func(o *Options[T]) {
		o.VirtualScrolling = enable
	}
}

// WithSearchFields sets the fields matched by the search query
func WithSearchFields[T any](fields ...string) Option[T] {
	return func(o *Options[T]) {
		o.SearchFields = fields
	}
}

// WithAccessor sets the field accessor
func WithAccessor[T any](a Accessor[T]) Option[T] {
	return func(o *Options[T]) {
		o.Accessor = a
	}
}

// WithFetch switches the controller to remote mode
func WithFetch[T any](fetch FetchFunc[T]) Option[T] {
	return func(o *Options[T]) {
		o.Fetch = fetch
	}
}

// WithClock sets the time source used for debouncing and fetch timing
func WithClock[T any](c clock.Clock) Option[T] {
	return func(o *Options[T]) {
		o.Clock = c
	}
}

// WithLogger sets the logger
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(o *Options[T]) {
		o.Logger = l
	}
}

// WithMetrics sets the metrics exporter
func WithMetrics[T any](m metrics.Exporter) Option[T] {
	return func(o *Options[T]) {
		o.Metrics = m
	}
}

// DefaultOptions returns the default controller options
func DefaultOptions[T any]() *Options[T] {
	return &Options[T]{
		PageSize:     DefaultPageSize,
		MaxPages:     DefaultMaxPages,
		Debounce:     DefaultDebounce,
		SearchFields: DefaultSearchFields,
		Accessor:     ReflectAccessor[T](),
		Clock:        clock.Real(),
	}
}

func (o *Options[T]) validate() error {
	if o.PageSize <= 0 {
		return errors.ErrInvalidPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.Accessor == nil {
		o.Accessor = ReflectAccessor[T]()
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
	return nil
}
