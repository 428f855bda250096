// Package paginate turns an in-memory collection or a remote fetch function
// into a searchable, filterable, paged view.
package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hmanprod/fleetmada-sub008/debounce"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/internal"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
)

// Query describes the page a remote fetch must return
type Query struct {
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	Search   string  `json:"search,omitempty"`
	Filters  Filters `json:"filters,omitempty"`
}

// Result is one page returned by a FetchFunc
type Result[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Metadata any  `json:"metadata,omitempty"`
	CacheHit bool `json:"cacheHit,omitempty"`
}

// FetchFunc loads one page from a remote source. The source applies the
// search and filters itself.
type FetchFunc[T any] func(ctx context.Context, q Query) (Result[T], error)

// Metadata describes the last committed load
type Metadata struct {
	LoadTime   time.Duration
	SearchTime time.Duration
	CacheHit   bool
	RequestID  string
	Extra      any
}

// Stats summarizes the collection sizes
type Stats struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
	Pages    int `json:"pages"`
}

// View is an immutable snapshot of the controller state
type View[T any] struct {
	PageItems     []T
	FilteredItems []T
	AllItems      []T

	CurrentPage     int
	TotalPages      int
	TotalItems      int
	PageSize        int
	HasNextPage     bool
	HasPreviousPage bool

	SearchQuery string
	Filters     Filters

	Loading     bool
	LoadingMore bool
	Error       string

	Metadata Metadata
	Stats    Stats
}

// Controller holds the pagination state. In local mode it pages over the
// items given to New. With a FetchFunc it runs in remote mode and every
// navigation fetches the target page. All methods are safe for concurrent use.
type Controller[T any] struct {
	mu   sync.Mutex
	opts *Options[T]
	log  *slog.Logger

	initial []T
	items   []T
	query   string
	filters Filters
	page    int
	total   int

	loading     bool
	loadingMore bool
	err         string
	meta        Metadata

	// epoch increases with every fetch; only the latest one commits
	epoch       uint64
	cancelFetch context.CancelFunc

	search *debounce.Debouncer
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a controller over items
func New[T any](items []T, opts ...Option[T]) (*Controller[T], error) {
	options := DefaultOptions[T]()
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, errors.WrapError("New", nil, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	initial := slices.Clone(items)
	return &Controller[T]{
		opts:    options,
		log:     options.Logger.With(logger.Component("paginate")),
		initial: initial,
		items:   slices.Clone(initial),
		page:    1,
		total:   len(initial),
		search:  debounce.New(options.Debounce, options.Clock),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Remote reports whether the controller fetches pages from a FetchFunc
func (c *Controller[T]) Remote() bool {
	return c.opts.Fetch != nil
}

func (c *Controller[T]) filteredLocked() []T {
	if c.Remote() {
		return c.items
	}
	return Filter(c.items, c.query, c.filters, c.opts.SearchFields, c.opts.Accessor)
}

func (c *Controller[T]) totalPagesLocked(filtered []T) int {
	if c.Remote() {
		return internal.CeilDiv(c.total, c.opts.PageSize)
	}
	return internal.CeilDiv(len(filtered), c.opts.PageSize)
}

func (c *Controller[T]) pageItemsLocked(filtered []T) []T {
	if c.opts.VirtualScrolling || c.Remote() {
		return filtered
	}
	start := (c.page - 1) * c.opts.PageSize
	if c.opts.InfiniteScroll {
		start = 0
	}
	end := min(c.page*c.opts.PageSize, len(filtered))
	if start >= end {
		return nil
	}
	return filtered[start:end]
}

func (c *Controller[T]) queryLocked(page int) Query {
	return Query{
		Page:     page,
		PageSize: c.opts.PageSize,
		Search:   c.query,
		Filters:  c.filters.Active(),
	}
}

// View returns a snapshot of the current state
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.filteredLocked()
	pages := c.totalPagesLocked(filtered)
	totalItems := len(filtered)
	if c.Remote() {
		totalItems = c.total
	}

	return View[T]{
		PageItems:       slices.Clone(c.pageItemsLocked(filtered)),
		FilteredItems:   slices.Clone(filtered),
		AllItems:        slices.Clone(c.items),
		CurrentPage:     c.page,
		TotalPages:      pages,
		TotalItems:      totalItems,
		PageSize:        c.opts.PageSize,
		HasNextPage:     c.page < pages,
		HasPreviousPage: c.page > 1,
		SearchQuery:     c.query,
		Filters:         c.filters.Clone(),
		Loading:         c.loading,
		LoadingMore:     c.loadingMore,
		Error:           c.err,
		Metadata:        c.meta,
		Stats: Stats{
			Total:    len(c.items),
			Filtered: len(filtered),
			Pages:    pages,
		},
	}
}

// GoToPage moves to page n, clamped into [1, max(1, totalPages)]
func (c *Controller[T]) GoToPage(ctx context.Context, n int) error {
	return c.navigate(ctx, "GoToPage", func(_, _ int) (int, bool) { return n, true })
}

// NextPage moves forward one page. It is a no-op on the last page.
func (c *Controller[T]) NextPage(ctx context.Context) error {
	return c.navigate(ctx, "NextPage", func(page, pages int) (int, bool) {
		return page + 1, page < pages
	})
}

// PreviousPage moves back one page. It is a no-op on the first page.
func (c *Controller[T]) PreviousPage(ctx context.Context) error {
	return c.navigate(ctx, "PreviousPage", func(page, _ int) (int, bool) {
		return page - 1, page > 1
	})
}

// GoToFirstPage moves to page 1
func (c *Controller[T]) GoToFirstPage(ctx context.Context) error {
	return c.navigate(ctx, "GoToFirstPage", func(_, _ int) (int, bool) { return 1, true })
}

// GoToLastPage moves to the last page
func (c *Controller[T]) GoToLastPage(ctx context.Context) error {
	return c.navigate(ctx, "GoToLastPage", func(_, pages int) (int, bool) { return pages, true })
}

func (c *Controller[T]) navigate(ctx context.Context, op string, target func(page, pages int) (int, bool)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapError(op, nil, errors.ErrInvalidOperation)
	}
	pages := c.totalPagesLocked(c.filteredLocked())
	page, ok := target(c.page, pages)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.page = internal.Clamp(page, 1, max(1, pages))
	q := c.queryLocked(c.page)
	c.mu.Unlock()

	if !c.Remote() {
		return nil
	}
	return c.fetch(ctx, op, q, false)
}

// SetSearchQuery schedules a search. Only the last query within the debounce
// window applies: it resets to page 1 and, in remote mode, refetches.
func (c *Controller[T]) SetSearchQuery(query string) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.search.Trigger(func() {
		if err := c.applySearch(c.ctx, query); err != nil {
			c.log.Warn("search failed", slog.String("query", query), logger.Error(err))
		}
	})
}

// FlushSearch applies a pending search now. It reports whether one was pending.
func (c *Controller[T]) FlushSearch() bool {
	return c.search.Flush()
}

// SearchPending reports whether a debounced search is waiting
func (c *Controller[T]) SearchPending() bool {
	return c.search.Pending()
}

func (c *Controller[T]) applySearch(ctx context.Context, query string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.query = query
	c.page = 1
	if !c.Remote() {
		start := c.opts.Clock.Now()
		filtered := c.filteredLocked()
		c.meta.SearchTime = c.opts.Clock.Now().Sub(start)
		c.mu.Unlock()
		c.log.Debug("search applied", slog.String("query", query), logger.Count("matches", len(filtered)))
		return nil
	}
	q := c.queryLocked(1)
	c.mu.Unlock()
	return c.fetch(ctx, "SetSearchQuery", q, false)
}

// SetFilters replaces the filter criteria and resets to page 1. Nil and zero
// criteria match everything.
func (c *Controller[T]) SetFilters(ctx context.Context, filters Filters) error {
	return c.reset(ctx, "SetFilters", func() {
		c.filters = filters.Clone()
	})
}

// ClearFilters clears the search and the filters and resets to page 1. It
// also drops a pending debounced search.
func (c *Controller[T]) ClearFilters(ctx context.Context) error {
	c.search.Cancel()
	return c.reset(ctx, "ClearFilters", func() {
		c.query = ""
		c.filters = nil
	})
}

func (c *Controller[T]) reset(ctx context.Context, op string, update func()) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapError(op, nil, errors.ErrInvalidOperation)
	}
	update()
	c.page = 1
	q := c.queryLocked(1)
	c.mu.Unlock()

	if !c.Remote() {
		return nil
	}
	return c.fetch(ctx, op, q, false)
}

// LoadMore appends the next page when infinite scroll is enabled. It is a
// no-op while another load-more is running, on the last page, or once
// MaxPages pages are loaded.
func (c *Controller[T]) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapError("LoadMore", nil, errors.ErrInvalidOperation)
	}
	pages := c.totalPagesLocked(c.filteredLocked())
	if !c.opts.InfiniteScroll || c.loadingMore || c.page >= pages || c.page >= c.opts.MaxPages {
		c.mu.Unlock()
		return nil
	}
	if !c.Remote() {
		c.page++
		c.mu.Unlock()
		return nil
	}
	q := c.queryLocked(c.page + 1)
	c.mu.Unlock()
	return c.fetch(ctx, "LoadMore", q, true)
}

// Refresh re-issues the fetch for the current page, search and filters
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapError("Refresh", nil, errors.ErrInvalidOperation)
	}
	q := c.queryLocked(c.page)
	c.mu.Unlock()

	if !c.Remote() {
		return nil
	}
	return c.fetch(ctx, "Refresh", q, false)
}

// ResetPagination restores the initial collection and clears the search,
// filters, error and metadata. In-flight fetches and a pending search are
// dropped.
func (c *Controller[T]) ResetPagination() {
	c.search.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.items = slices.Clone(c.initial)
	c.total = len(c.initial)
	c.query = ""
	c.filters = nil
	c.page = 1
	c.loading = false
	c.loadingMore = false
	c.err = ""
	c.meta = Metadata{}
}

// Close cancels in-flight fetches and a pending search. Later calls that
// would fetch return an error.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.loading = false
	c.loadingMore = false
	c.mu.Unlock()

	c.search.Cancel()
	c.cancel()
}

func (c *Controller[T]) fetch(ctx context.Context, op string, q Query, appendPage bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapError(op, nil, errors.ErrInvalidOperation)
	}
	c.epoch++
	epoch := c.epoch
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	if appendPage {
		c.loadingMore = true
	} else {
		c.loading = true
	}
	c.err = ""
	c.mu.Unlock()

	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	requestID := uuid.NewString()
	start := c.opts.Clock.Now()
	res, err := c.callFetch(fetchCtx, q)
	elapsed := c.opts.Clock.Now().Sub(start)
	c.opts.Metrics.RecordFetch(elapsed, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.opts.Metrics.RecordStaleFetch()
		c.log.Debug("discarding stale fetch",
			slog.String("request_id", requestID),
			slog.Int("page", q.Page),
			logger.Error(err))
		return nil
	}

	c.cancelFetch = nil
	c.loading = false
	c.loadingMore = false

	if err != nil {
		c.err = err.Error()
		c.log.Warn("fetch failed",
			slog.String("request_id", requestID),
			slog.String("op", op),
			slog.Int("page", q.Page),
			logger.Error(err))
		return errors.WrapError(op, q.Page, fmt.Errorf("%w: %w", errors.ErrFetch, err))
	}

	if appendPage {
		c.items = append(slices.Clip(c.items), res.Data...)
	} else {
		c.items = res.Data
	}
	c.total = res.Total
	c.page = internal.Clamp(q.Page, 1, max(1, internal.CeilDiv(res.Total, c.opts.PageSize)))
	c.meta = Metadata{
		LoadTime:  elapsed,
		CacheHit:  res.CacheHit,
		RequestID: requestID,
		Extra:     res.Metadata,
	}
	if q.Search != "" {
		c.meta.SearchTime = elapsed
	}

	c.log.Debug("fetch committed",
		slog.String("request_id", requestID),
		slog.Int("page", q.Page),
		logger.Count("items", len(res.Data)),
		logger.Duration(elapsed),
		slog.Bool("cache_hit", res.CacheHit))
	return nil
}

func (c *Controller[T]) callFetch(ctx context.Context, q Query) (res Result[T], err error) {
	defer errors.Recover("Fetch", q.Page, errors.ErrFetchPanic, &err)
	return c.opts.Fetch(ctx, q)
}
