package inspection

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/clock"
	"github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/paginate"
	"github.com/hmanprod/fleetmada-sub008/store"
)

var now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, codec bool) (*Cache, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(now)
	opts := []fleetcache.Option{fleetcache.WithClock(fake), fleetcache.WithCleanupInterval(0)}
	if codec {
		opts = append(opts, fleetcache.WithCodec(fleetcache.MustCodec(fleetcache.DefaultCompressionConfig())))
	}
	c, err := fleetcache.New[any](opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewCache(c, nil), fake
}

func sample(id string) Inspection {
	return Inspection{
		ID:            id,
		VehicleID:     "v-" + id,
		Title:         "Inspection " + id,
		Status:        StatusScheduled,
		InspectorName: "Alice",
		CreatedAt:     now,
		UpdatedAt:     now,
		Vehicle:       &Vehicle{ID: "v-" + id, Name: "Truck " + id},
	}
}

func TestDetails(t *testing.T) {
	for _, codec := range []bool{false, true} {
		t.Run(fmt.Sprintf("Codec %v", codec), func(t *testing.T) {
			c, fake := newTestCache(t, codec)

			require.NoError(t, c.CacheDetails("42", sample("42"), time.Second))
			got, err := c.Details("42")
			require.NoError(t, err)
			require.Equal(t, sample("42"), got)
			require.Equal(t, 1, c.Underlying().Size())

			fake.Advance(1001 * time.Millisecond)
			_, err = c.Details("42")
			require.True(t, errors.IsKeyNotFound(err))
			require.Equal(t, int64(1), c.Statistics().Misses)
		})
	}
}

func TestListsAndInvalidation(t *testing.T) {
	c, _ := newTestCache(t, true)

	page1 := ListPage{Inspections: []Inspection{sample("1"), sample("2")}, Total: 3, Page: 1, Limit: 2}
	page2 := ListPage{Inspections: []Inspection{sample("3")}, Total: 3, Page: 2, Limit: 2}
	params1 := map[string]any{"page": 1, "limit": 2, "status": "SCHEDULED"}
	params2 := map[string]any{"status": "SCHEDULED", "limit": 2, "page": 2}

	require.NoError(t, c.CacheList(params1, page1, time.Minute))
	require.NoError(t, c.CacheList(params2, page2, time.Minute))
	require.NoError(t, c.CacheDetails("1", sample("1"), time.Minute))
	require.NoError(t, c.CacheDashboard(Dashboard{Metrics: Metrics{Total: 3}}, time.Minute))
	require.NoError(t, c.CacheTemplates([]Template{{ID: "t1", Name: "Daily", Category: "safety", IsActive: true}}, time.Minute))

	// same parameters in another order hit the same key
	got, err := c.List(map[string]any{"limit": 2, "status": "SCHEDULED", "page": 1})
	require.NoError(t, err)
	require.Equal(t, page1, got)

	removed := c.InvalidateInspection("1")
	assert.Equal(t, 3, removed)

	_, err = c.Details("1")
	require.True(t, errors.IsKeyNotFound(err))
	_, err = c.List(params1)
	require.True(t, errors.IsKeyNotFound(err))
	_, err = c.Dashboard()
	require.True(t, errors.IsKeyNotFound(err))

	// lists without inspection 1 and other namespaces survive
	_, err = c.List(params2)
	require.NoError(t, err)
	templates, err := c.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 1)

	require.Equal(t, 1, c.InvalidateLists())
	_, err = c.List(params2)
	require.True(t, errors.IsKeyNotFound(err))

	require.NoError(t, c.InvalidateAll())
	require.Zero(t, c.Underlying().Size())
}

func TestTemplatesDoNotCollideWithDetails(t *testing.T) {
	c, _ := newTestCache(t, false)
	require.NoError(t, c.CacheTemplates([]Template{{ID: "t1", Name: "Daily"}}, time.Minute))
	require.NoError(t, c.CacheDetails("templates", sample("templates"), time.Minute))

	templates, err := c.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 1)

	c.InvalidateInspection("templates")
	templates, err = c.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
}

func TestInvalidationAcrossReplicas(t *testing.T) {
	fake := clock.NewFake(now)
	l2, err := store.NewMemoryStore(store.WithClock(fake), store.WithCleanupInterval(0))
	require.NoError(t, err)
	codec := fleetcache.MustCodec(fleetcache.DefaultCompressionConfig())

	replica := func() *Cache {
		c, err := fleetcache.New[any](fleetcache.WithClock(fake), fleetcache.WithCleanupInterval(0),
			fleetcache.WithCodec(codec), fleetcache.WithStore(l2))
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return NewCache(c, nil)
	}
	a, b := replica(), replica()

	params := map[string]any{"page": 1, "limit": 20}
	page := ListPage{Inspections: []Inspection{sample("1"), sample("2")}, Total: 2, Page: 1, Limit: 20}
	require.NoError(t, a.CacheList(params, page, time.Minute))

	// b never cached the list; the shared store still knows its tags.
	assert.Equal(t, 1, b.InvalidateInspection("2"))
	_, err = b.List(params)
	require.True(t, errors.IsKeyNotFound(err))
	_, err = replica().List(params)
	require.True(t, errors.IsKeyNotFound(err))
}

func TestDashboardRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, true)
	d := Dashboard{
		Metrics:     Summarize([]Inspection{sample("1")}, now),
		Upcoming:    []Inspection{sample("1")},
		GeneratedAt: now,
	}
	require.NoError(t, c.CacheDashboard(d, time.Minute))
	got, err := c.Dashboard()
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestPreload(t *testing.T) {
	for _, codec := range []bool{false, true} {
		t.Run(fmt.Sprintf("Codec %v", codec), func(t *testing.T) {
			c, _ := newTestCache(t, codec)
			ctx := context.Background()
			var loads atomic.Int32
			load := func(_ context.Context, id string) (Inspection, error) {
				loads.Add(1)
				return sample(id), nil
			}

			got, err := c.Preload(ctx, "7", load, time.Minute)
			require.NoError(t, err)
			require.Equal(t, "7", got.ID)

			got, err = c.Preload(ctx, "7", load, time.Minute)
			require.NoError(t, err)
			require.Equal(t, sample("7"), got)
			require.Equal(t, int32(1), loads.Load())

			require.NoError(t, c.PreloadMany(ctx, []string{"7", "8", "9"}, load, time.Minute))
			require.Equal(t, int32(3), loads.Load())
			got, err = c.Details("9")
			require.NoError(t, err)
			require.Equal(t, "Truck 9", got.VehicleName())
		})
	}

	t.Run("Loader Error", func(t *testing.T) {
		c, _ := newTestCache(t, false)
		_, err := c.Preload(context.Background(), "1", func(context.Context, string) (Inspection, error) {
			return Inspection{}, fmt.Errorf("not found")
		}, time.Minute)
		require.Error(t, err)
		_, err = c.Details("1")
		require.True(t, errors.IsKeyNotFound(err))
	})
}

func TestListFetch(t *testing.T) {
	c, _ := newTestCache(t, true)
	ctx := context.Background()

	all := []Inspection{sample("1"), sample("2"), sample("3")}
	var calls atomic.Int32
	fetch := c.ListFetch(time.Minute, func(_ context.Context, q paginate.Query) (paginate.Result[Inspection], error) {
		calls.Add(1)
		lo := min((q.Page-1)*q.PageSize, len(all))
		hi := min(lo+q.PageSize, len(all))
		return paginate.Result[Inspection]{Data: all[lo:hi], Total: len(all)}, nil
	})

	ctrl, err := paginate.New(nil, PaginationOptions(paginate.WithFetch(fetch), paginate.WithPageSize[Inspection](2))...)
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.Refresh(ctx))
	require.NoError(t, ctrl.Refresh(ctx))
	require.True(t, ctrl.View().Metadata.CacheHit)
	require.Equal(t, int32(1), calls.Load())

	require.Equal(t, 1, c.InvalidateInspection("2"))
	require.NoError(t, ctrl.Refresh(ctx))
	require.False(t, ctrl.View().Metadata.CacheHit)
	require.Equal(t, int32(2), calls.Load())

	require.NoError(t, ctrl.NextPage(ctx))
	v := ctrl.View()
	require.Equal(t, 2, v.CurrentPage)
	require.Equal(t, "3", v.PageItems[0].ID)
}

func TestAccessor(t *testing.T) {
	items := []Inspection{sample("1"), sample("2")}
	items[1].Vehicle.Name = "Van 9"
	items[1].Status = StatusCompleted

	got := paginate.Filter(items, "van", nil, paginate.DefaultSearchFields, Accessor)
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].ID)

	got = paginate.Filter(items, "", paginate.Filters{"status": "COMPLETED"}, paginate.DefaultSearchFields, Accessor)
	require.Len(t, got, 1)

	v, ok := Accessor(Inspection{}, "vehicleName")
	require.True(t, ok)
	require.Empty(t, v)
}
