package paginate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/metrics"
)

var start = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func numbered(n int) []record {
	out := make([]record, n)
	for i := range out {
		out[i] = record{ID: i + 1, Title: fmt.Sprintf("Inspection %d", i+1), Status: "COMPLETED"}
	}
	return out
}

func newLocal(t *testing.T, items []record, opts ...Option[record]) (*Controller[record], *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(start)
	opts = append([]Option[record]{WithClock[record](fake)}, opts...)
	c, err := New(items, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, fake
}

// server is an in-memory remote source
type server struct {
	mu      sync.Mutex
	items   []record
	queries []Query
	err     error
}

func (s *server) fetch(_ context.Context, q Query) (Result[record], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return Result[record]{}, s.err
	}
	filtered := Filter(s.items, q.Search, q.Filters, DefaultSearchFields, ReflectAccessor[record]())
	lo := min((q.Page-1)*q.PageSize, len(filtered))
	hi := min(lo+q.PageSize, len(filtered))
	return Result[record]{Data: filtered[lo:hi], Total: len(filtered)}, nil
}

func (s *server) calls() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

func newRemote(t *testing.T, srv *server, opts ...Option[record]) (*Controller[record], *clock.Fake, *metrics.CacheMetrics) {
	t.Helper()
	m := metrics.NewCacheMetrics()
	opts = append([]Option[record]{WithFetch(srv.fetch), WithMetrics[record](m)}, opts...)
	c, fake := newLocal(t, nil, opts...)
	return c, fake, m
}

func TestNewValidation(t *testing.T) {
	_, err := New[record](nil, WithPageSize[record](0))
	require.ErrorIs(t, err, errors.ErrInvalidPageSize)

	c, err := New[record](nil)
	require.NoError(t, err)
	defer c.Close()
	v := c.View()
	require.Equal(t, DefaultPageSize, v.PageSize)
	require.Equal(t, 1, v.CurrentPage)
	require.Zero(t, v.TotalPages)
	require.False(t, v.HasNextPage)
	require.False(t, v.HasPreviousPage)
	require.False(t, c.Remote())
}

func TestLocalPagination(t *testing.T) {
	ctx := context.Background()

	t.Run("Last Partial Page", func(t *testing.T) {
		c, _ := newLocal(t, numbered(105))
		require.NoError(t, c.GoToPage(ctx, 6))

		v := c.View()
		require.Equal(t, 6, v.TotalPages)
		require.Equal(t, 6, v.CurrentPage)
		require.Equal(t, []int{101, 102, 103, 104, 105}, ids(v.PageItems))
		require.False(t, v.HasNextPage)
		require.True(t, v.HasPreviousPage)
		require.Equal(t, Stats{Total: 105, Filtered: 105, Pages: 6}, v.Stats)
		require.Equal(t, 105, v.TotalItems)
	})

	t.Run("Clamping", func(t *testing.T) {
		c, _ := newLocal(t, numbered(105))

		for _, tt := range []struct {
			page, want int
		}{
			{page: -3, want: 1},
			{page: 0, want: 1},
			{page: 3, want: 3},
			{page: 6, want: 6},
			{page: 99, want: 6},
		} {
			require.NoError(t, c.GoToPage(ctx, tt.page))
			assert.Equal(t, tt.want, c.View().CurrentPage, "page %d", tt.page)
		}
	})

	t.Run("Empty Collection", func(t *testing.T) {
		c, _ := newLocal(t, nil)
		require.NoError(t, c.GoToPage(ctx, 4))
		v := c.View()
		require.Equal(t, 1, v.CurrentPage)
		require.Empty(t, v.PageItems)
		require.Zero(t, v.TotalPages)
	})

	t.Run("Navigation", func(t *testing.T) {
		c, _ := newLocal(t, numbered(45), WithPageSize[record](10))

		require.NoError(t, c.PreviousPage(ctx))
		require.Equal(t, 1, c.View().CurrentPage)

		require.NoError(t, c.NextPage(ctx))
		require.Equal(t, 2, c.View().CurrentPage)

		require.NoError(t, c.GoToLastPage(ctx))
		require.Equal(t, 5, c.View().CurrentPage)

		require.NoError(t, c.NextPage(ctx))
		require.Equal(t, 5, c.View().CurrentPage)

		require.NoError(t, c.PreviousPage(ctx))
		require.Equal(t, 4, c.View().CurrentPage)

		require.NoError(t, c.GoToFirstPage(ctx))
		require.Equal(t, 1, c.View().CurrentPage)
	})

	t.Run("Pages Cover Filtered Items", func(t *testing.T) {
		items := numbered(47)
		c, _ := newLocal(t, items, WithPageSize[record](6))

		var all []record
		pages := c.View().TotalPages
		for p := 1; p <= pages; p++ {
			require.NoError(t, c.GoToPage(ctx, p))
			page := c.View().PageItems
			require.LessOrEqual(t, len(page), 6)
			all = append(all, page...)
		}
		require.Equal(t, items, all)
	})

	t.Run("Virtual Scrolling", func(t *testing.T) {
		c, _ := newLocal(t, numbered(45), WithVirtualScrolling[record](true))
		require.NoError(t, c.GoToPage(ctx, 2))
		v := c.View()
		require.Len(t, v.PageItems, 45)
		require.Equal(t, 3, v.TotalPages)
	})

	t.Run("View Is A Copy", func(t *testing.T) {
		c, _ := newLocal(t, numbered(3))
		v := c.View()
		v.PageItems[0].Title = "changed"
		v.AllItems[1].Title = "changed"
		require.Equal(t, "Inspection 1", c.View().PageItems[0].Title)
		require.Equal(t, "Inspection 2", c.View().AllItems[1].Title)
	})
}

func TestLocalFilters(t *testing.T) {
	ctx := context.Background()
	items := numbered(20)
	for _, i := range []int{0, 3, 5, 8, 11, 15, 19} {
		items[i].Status = "OPEN"
	}

	c, _ := newLocal(t, items, WithPageSize[record](5))
	require.NoError(t, c.GoToPage(ctx, 3))

	require.NoError(t, c.SetFilters(ctx, Filters{"status": "OPEN"}))
	v := c.View()
	require.Len(t, v.FilteredItems, 7)
	require.Equal(t, 1, v.CurrentPage)
	require.Equal(t, 2, v.TotalPages)
	require.Equal(t, []int{1, 4, 6, 9, 12}, ids(v.PageItems))
	require.Equal(t, Filters{"status": "OPEN"}, v.Filters)
	require.Equal(t, 20, v.Stats.Total)
	require.Equal(t, 7, v.Stats.Filtered)

	require.NoError(t, c.SetFilters(ctx, Filters{"status": ""}))
	require.Len(t, c.View().FilteredItems, 20)

	require.NoError(t, c.SetFilters(ctx, Filters{"status": "OPEN"}))
	c.SetSearchQuery("inspection 1")
	require.NoError(t, c.ClearFilters(ctx))
	require.False(t, c.SearchPending())
	v = c.View()
	require.Empty(t, v.SearchQuery)
	require.Empty(t, v.Filters)
	require.Len(t, v.FilteredItems, 20)
}

func TestDebouncedSearch(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		c, fake := newLocal(t, sampleRecords())
		require.NoError(t, c.GoToPage(context.Background(), 1))

		c.SetSearchQuery("t")
		fake.Advance(100 * time.Millisecond)
		c.SetSearchQuery("tr")
		fake.Advance(100 * time.Millisecond)
		c.SetSearchQuery("truck")
		require.True(t, c.SearchPending())
		require.Empty(t, c.View().SearchQuery)

		fake.Advance(299 * time.Millisecond)
		require.Empty(t, c.View().SearchQuery)

		fake.Advance(time.Millisecond)
		v := c.View()
		require.Equal(t, "truck", v.SearchQuery)
		require.Equal(t, []int{1, 3}, ids(v.FilteredItems))
		require.Equal(t, 1, v.CurrentPage)
		require.False(t, c.SearchPending())
	})

	t.Run("Remote", func(t *testing.T) {
		srv := &server{items: sampleRecords()}
		c, fake, _ := newRemote(t, srv)

		c.SetSearchQuery("b")
		c.SetSearchQuery("br")
		c.SetSearchQuery("brake")
		require.Empty(t, srv.calls())

		fake.Advance(DefaultDebounce)
		calls := srv.calls()
		require.Len(t, calls, 1)
		require.Equal(t, Query{Page: 1, PageSize: DefaultPageSize, Search: "brake"}, calls[0])

		v := c.View()
		require.Equal(t, []int{1}, ids(v.PageItems))
		require.Equal(t, 1, v.TotalItems)
		require.NotEmpty(t, v.Metadata.RequestID)
	})

	t.Run("Flush", func(t *testing.T) {
		c, fake := newLocal(t, sampleRecords())
		c.SetSearchQuery("oil")
		require.True(t, c.FlushSearch())
		require.Equal(t, "oil", c.View().SearchQuery)
		require.False(t, c.FlushSearch())
		require.Zero(t, fake.PendingTimers())
	})

	t.Run("Zero Delay", func(t *testing.T) {
		c, _ := newLocal(t, sampleRecords(), WithDebounce[record](0))
		c.SetSearchQuery("oil")
		require.Equal(t, []int{3}, ids(c.View().FilteredItems))
	})
}

func TestRemotePagination(t *testing.T) {
	ctx := context.Background()

	t.Run("Navigation Fetches Pages", func(t *testing.T) {
		srv := &server{items: numbered(105)}
		c, _, m := newRemote(t, srv)
		require.True(t, c.Remote())

		require.NoError(t, c.Refresh(ctx))
		v := c.View()
		require.Equal(t, 6, v.TotalPages)
		require.Equal(t, 105, v.TotalItems)
		require.Len(t, v.PageItems, 20)

		require.NoError(t, c.GoToPage(ctx, 6))
		v = c.View()
		require.Equal(t, 6, v.CurrentPage)
		require.Equal(t, []int{101, 102, 103, 104, 105}, ids(v.PageItems))

		require.NoError(t, c.NextPage(ctx))
		require.Len(t, srv.calls(), 2)

		require.NoError(t, c.GoToPage(ctx, 42))
		require.Equal(t, 6, srv.calls()[2].Page)

		require.Equal(t, int64(3), m.Snapshot().Fetches)
	})

	t.Run("Filters Reset Page", func(t *testing.T) {
		items := numbered(50)
		for i := range 30 {
			items[i].Status = "OPEN"
		}
		srv := &server{items: items}
		c, _, _ := newRemote(t, srv, WithPageSize[record](10))

		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.GoToPage(ctx, 4))
		require.NoError(t, c.SetFilters(ctx, Filters{"status": "OPEN", "location": ""}))

		calls := srv.calls()
		last := calls[len(calls)-1]
		require.Equal(t, 1, last.Page)
		require.Equal(t, Filters{"status": "OPEN"}, last.Filters)

		v := c.View()
		require.Equal(t, 1, v.CurrentPage)
		require.Equal(t, 3, v.TotalPages)
		require.Equal(t, 30, v.TotalItems)
	})

	t.Run("Failure Keeps Data", func(t *testing.T) {
		srv := &server{items: numbered(30)}
		c, _, m := newRemote(t, srv)
		require.NoError(t, c.Refresh(ctx))

		srv.mu.Lock()
		srv.err = fmt.Errorf("connection refused")
		srv.mu.Unlock()

		err := c.NextPage(ctx)
		require.ErrorIs(t, err, errors.ErrFetch)
		v := c.View()
		require.Equal(t, "connection refused", v.Error)
		require.Len(t, v.AllItems, 20)
		require.False(t, v.Loading)
		require.Equal(t, int64(1), m.Snapshot().FetchErrors)

		srv.mu.Lock()
		srv.err = nil
		srv.mu.Unlock()
		require.NoError(t, c.Refresh(ctx))
		require.Empty(t, c.View().Error)
	})

	t.Run("Panic Is Recovered", func(t *testing.T) {
		c, _ := newLocal(t, nil, WithFetch(func(context.Context, Query) (Result[record], error) {
			panic("boom")
		}))

		err := c.Refresh(ctx)
		require.ErrorIs(t, err, errors.ErrFetchPanic)
		require.Contains(t, c.View().Error, "boom")
	})
}

func TestStaleFetchDiscarded(t *testing.T) {
	ctx := context.Background()
	srv := &server{items: numbered(100)}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fetch := func(ctx context.Context, q Query) (Result[record], error) {
		if q.Page == 2 {
			once.Do(func() { close(entered) })
			<-release
		}
		return srv.fetch(ctx, q)
	}

	m := metrics.NewCacheMetrics()
	c, _ := newLocal(t, nil, WithFetch(fetch), WithMetrics[record](m))
	require.NoError(t, c.Refresh(ctx))

	done := make(chan error, 1)
	go func() { done <- c.GoToPage(ctx, 2) }()
	<-entered

	require.NoError(t, c.GoToPage(ctx, 3))
	close(release)
	require.NoError(t, <-done)

	v := c.View()
	require.Equal(t, 3, v.CurrentPage)
	require.Equal(t, 41, v.PageItems[0].ID)
	require.Equal(t, int64(1), m.Snapshot().StaleFetches)
}

func TestLoadMore(t *testing.T) {
	ctx := context.Background()

	t.Run("Remote Appends", func(t *testing.T) {
		srv := &server{items: numbered(45)}
		c, _, _ := newRemote(t, srv, WithPageSize[record](10), WithInfiniteScroll[record](true))
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.LoadMore(ctx))
		require.NoError(t, c.LoadMore(ctx))
		v := c.View()
		require.Equal(t, 3, v.CurrentPage)
		require.Len(t, v.PageItems, 30)
		require.Equal(t, 30, v.Stats.Total)

		require.NoError(t, c.LoadMore(ctx))
		require.NoError(t, c.LoadMore(ctx))
		require.Len(t, c.View().AllItems, 45)

		// no next page
		require.NoError(t, c.LoadMore(ctx))
		require.Len(t, srv.calls(), 5)
	})

	t.Run("Max Pages", func(t *testing.T) {
		srv := &server{items: numbered(100)}
		c, _, _ := newRemote(t, srv,
			WithPageSize[record](10),
			WithInfiniteScroll[record](true),
			WithMaxPages[record](2))
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.LoadMore(ctx))
		require.NoError(t, c.LoadMore(ctx))
		require.Len(t, c.View().AllItems, 20)
		require.Len(t, srv.calls(), 2)
	})

	t.Run("Disabled", func(t *testing.T) {
		srv := &server{items: numbered(100)}
		c, _, _ := newRemote(t, srv)
		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.LoadMore(ctx))
		require.Len(t, srv.calls(), 1)
	})

	t.Run("Local Window", func(t *testing.T) {
		c, _ := newLocal(t, numbered(25), WithPageSize[record](10), WithInfiniteScroll[record](true))
		require.Len(t, c.View().PageItems, 10)

		require.NoError(t, c.LoadMore(ctx))
		require.Len(t, c.View().PageItems, 20)

		require.NoError(t, c.LoadMore(ctx))
		require.NoError(t, c.LoadMore(ctx))
		v := c.View()
		require.Len(t, v.PageItems, 25)
		require.Equal(t, 3, v.CurrentPage)
	})
}

func TestResetAndClose(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset", func(t *testing.T) {
		initial := numbered(5)
		srv := &server{items: numbered(60)}
		c, fake := newLocal(t, initial, WithFetch(srv.fetch))

		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.SetFilters(ctx, Filters{"status": "COMPLETED"}))
		c.SetSearchQuery("inspection")

		c.ResetPagination()
		require.False(t, c.SearchPending())
		fake.Advance(time.Second)

		v := c.View()
		require.Equal(t, initial, v.AllItems)
		require.Equal(t, 5, v.TotalItems)
		require.Empty(t, v.SearchQuery)
		require.Empty(t, v.Filters)
		require.Empty(t, v.Error)
		require.Equal(t, Metadata{}, v.Metadata)
		require.Equal(t, 1, v.CurrentPage)
	})

	t.Run("Close", func(t *testing.T) {
		srv := &server{items: numbered(60)}
		c, fake, _ := newRemote(t, srv)

		c.SetSearchQuery("x")
		c.Close()
		fake.Advance(time.Second)
		require.Empty(t, srv.calls())

		require.ErrorIs(t, c.Refresh(ctx), errors.ErrInvalidOperation)
		require.ErrorIs(t, c.GoToPage(ctx, 2), errors.ErrInvalidOperation)
		c.Close()
	})

	t.Run("Close Cancels In-Flight Fetch", func(t *testing.T) {
		entered := make(chan struct{})
		c, _ := newLocal(t, nil, WithFetch(func(ctx context.Context, _ Query) (Result[record], error) {
			close(entered)
			<-ctx.Done()
			return Result[record]{}, ctx.Err()
		}))

		done := make(chan error, 1)
		go func() { done <- c.Refresh(ctx) }()
		<-entered
		c.Close()
		require.NoError(t, <-done)
		require.False(t, c.View().Loading)
	})
}

func TestConcurrentAccess(t *testing.T) {
	srv := &server{items: numbered(200)}
	c, _, _ := newRemote(t, srv, WithDebounce[record](0))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				switch (i + j) % 4 {
				case 0:
					_ = c.GoToPage(ctx, j)
				case 1:
					c.SetSearchQuery(strings.Repeat("1", j%3))
				case 2:
					_ = c.SetFilters(ctx, Filters{"status": "COMPLETED"})
				default:
					_ = c.View()
				}
			}
		}()
	}
	wg.Wait()

	v := c.View()
	require.GreaterOrEqual(t, v.CurrentPage, 1)
	require.LessOrEqual(t, v.CurrentPage, max(1, v.TotalPages))
}
