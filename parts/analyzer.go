package parts

import (
	"context"
	"log/slog"
	"time"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
)

// Namespace is the cache key prefix of low-stock reports
const Namespace = "parts:low-stock"

// DefaultTTL is how long a report stays cached
const DefaultTTL = 2 * time.Minute

// Source loads the parts that may be low on stock
type Source interface {
	LowStockCandidates(ctx context.Context) ([]Part, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) ([]Part, error)

// LowStockCandidates calls f
func (f SourceFunc) LowStockCandidates(ctx context.Context) ([]Part, error) {
	return f(ctx)
}

// Analyzer serves low-stock reports through a cache
type Analyzer struct {
	source Source
	cache  *fleetcache.Cache[any]
	ttl    time.Duration
	clock  clock.Clock
	log    *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTTL sets how long reports stay cached
func WithTTL(ttl time.Duration) Option {
	return func(a *Analyzer) {
		a.ttl = ttl
	}
}

// WithClock sets the time source used for usage recency
func WithClock(c clock.Clock) Option {
	return func(a *Analyzer) {
		a.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

// NewAnalyzer creates an analyzer. A nil cache disables caching.
func NewAnalyzer(source Source, cache *fleetcache.Cache[any], opts ...Option) *Analyzer {
	a := &Analyzer{
		source: source,
		cache:  cache,
		ttl:    DefaultTTL,
		clock:  clock.Real(),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("parts"))
	return a
}

// Key returns the cache key of q
func Key(q Query) string {
	return fleetcache.GenerateKey(Namespace, q.Normalize())
}

// LowStock returns the report for q, computing it on a cache miss
func (a *Analyzer) LowStock(ctx context.Context, q Query) (Result, error) {
	q = q.Normalize()
	if a.cache == nil {
		return a.compute(ctx, q)
	}

	key := Key(q)
	v, err := a.cache.Preload(ctx, key, func(ctx context.Context) (any, error) {
		return a.compute(ctx, q)
	}, a.ttl)
	if err != nil {
		return Result{}, err
	}
	if r, ok := v.(Result); ok {
		return r, nil
	}
	return fleetcache.GetAsContext[Result](ctx, a.cache, key)
}

func (a *Analyzer) compute(ctx context.Context, q Query) (Result, error) {
	parts, err := a.source.LowStockCandidates(ctx)
	if err != nil {
		return Result{}, errors.WrapError("LowStock", nil, err)
	}
	r := Analyze(parts, q, a.clock.Now())
	a.log.Debug("low-stock report computed",
		slog.String("severity", string(q.Severity)),
		logger.Count("matches", r.Summary.Total),
		logger.Count("critical", r.Summary.Critical))
	return r, nil
}

// Invalidate drops every cached report. Call it after stock movements.
func (a *Analyzer) Invalidate() int {
	if a.cache == nil {
		return 0
	}
	return a.cache.DeletePrefix(Namespace + ":")
}
