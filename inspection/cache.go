package inspection

import (
	"context"
	"log/slog"
	"time"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/paginate"
)

// Cache namespaces
const (
	DetailNamespace    = "inspection"
	ListNamespace      = "inspections:list"
	DashboardKey       = "dashboard:inspections"
	TemplatesKey       = "inspection-templates"
	refTagPrefix       = "inspection-ref:"
	listTag            = "inspections:lists"
	DefaultDetailTTL   = 5 * time.Minute
	DefaultListTTL     = 2 * time.Minute
	DefaultTemplateTTL = 30 * time.Minute
)

// DetailKey returns the cache key of an inspection
func DetailKey(id string) string {
	return DetailNamespace + ":" + id
}

// ListKey returns the cache key of a list query. Parameter order does not
// change the key.
func ListKey(params any) string {
	return fleetcache.GenerateKey(ListNamespace, params)
}

// RefTag is the tag carried by every list that contains the inspection
func RefTag(id string) string {
	return refTagPrefix + id
}

// Cache wraps a shared cache with the inspection namespaces
type Cache struct {
	cache *fleetcache.Cache[any]
	log   *slog.Logger
}

// NewCache creates inspection helpers over c. A nil logger discards records.
func NewCache(c *fleetcache.Cache[any], log *slog.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	return &Cache{cache: c, log: log.With(logger.Component("inspection"))}
}

// Underlying returns the shared cache
func (c *Cache) Underlying() *fleetcache.Cache[any] {
	return c.cache
}

// CacheDetails stores an inspection under inspection:<id>
func (c *Cache) CacheDetails(id string, v Inspection, ttl time.Duration) error {
	return c.cache.Set(DetailKey(id), v, ttl)
}

// Details returns a cached inspection
func (c *Cache) Details(id string) (Inspection, error) {
	return fleetcache.GetAs[Inspection](c.cache, DetailKey(id))
}

// CacheList stores a list page. The entry is tagged with every inspection it
// contains so InvalidateInspection can find it.
func (c *Cache) CacheList(params any, page ListPage, ttl time.Duration) error {
	tags := make([]string, 0, len(page.Inspections)+1)
	tags = append(tags, listTag)
	for _, i := range page.Inspections {
		tags = append(tags, RefTag(i.ID))
	}
	return c.cache.SetTagged(ListKey(params), page, ttl, tags...)
}

// List returns a cached list page
func (c *Cache) List(params any) (ListPage, error) {
	return fleetcache.GetAs[ListPage](c.cache, ListKey(params))
}

// CacheDashboard stores the dashboard payload
func (c *Cache) CacheDashboard(d Dashboard, ttl time.Duration) error {
	return c.cache.Set(DashboardKey, d, ttl)
}

// Dashboard returns the cached dashboard payload
func (c *Cache) Dashboard() (Dashboard, error) {
	return fleetcache.GetAs[Dashboard](c.cache, DashboardKey)
}

// CacheTemplates stores the template catalogue
func (c *Cache) CacheTemplates(templates []Template, ttl time.Duration) error {
	return c.cache.Set(TemplatesKey, templates, ttl)
}

// Templates returns the cached template catalogue
func (c *Cache) Templates() ([]Template, error) {
	return fleetcache.GetAs[[]Template](c.cache, TemplatesKey)
}

// InvalidateInspection drops the inspection details, every cached list that
// contains it and the dashboard. It returns the number of keys removed.
func (c *Cache) InvalidateInspection(id string) int {
	removed := 0
	if ok, err := c.cache.Delete(DetailKey(id)); err != nil {
		c.log.Warn("detail invalidation failed", logger.Key(DetailKey(id)), logger.Error(err))
	} else if ok {
		removed++
	}
	removed += c.cache.InvalidateTag(RefTag(id))
	if ok, _ := c.cache.Delete(DashboardKey); ok {
		removed++
	}
	c.log.Debug("inspection invalidated", slog.String("id", id), logger.Count("keys", removed))
	return removed
}

// InvalidateLists drops every cached list. Creations and status changes can
// add an inspection to a list that did not hold it before, which the
// reference tags cannot see.
func (c *Cache) InvalidateLists() int {
	return c.cache.InvalidateTag(listTag)
}

// InvalidateAll clears the cache
func (c *Cache) InvalidateAll() error {
	return c.cache.Clear()
}

// Loader fetches one inspection from the source of truth
type Loader func(ctx context.Context, id string) (Inspection, error)

// Preload returns the cached inspection or loads and caches it
func (c *Cache) Preload(ctx context.Context, id string, load Loader, ttl time.Duration) (Inspection, error) {
	key := DetailKey(id)
	v, err := c.cache.Preload(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx, id)
	}, ttl)
	if err != nil {
		return Inspection{}, err
	}
	if i, ok := v.(Inspection); ok {
		return i, nil
	}
	return fleetcache.GetAsContext[Inspection](ctx, c.cache, key)
}

// PreloadMany warms the details of ids concurrently
func (c *Cache) PreloadMany(ctx context.Context, ids []string, load Loader, ttl time.Duration) error {
	keys := make([]string, len(ids))
	byKey := make(map[string]string, len(ids))
	for n, id := range ids {
		keys[n] = DetailKey(id)
		byKey[keys[n]] = id
	}
	return c.cache.PreloadMany(ctx, keys, func(ctx context.Context, key string) (any, error) {
		return load(ctx, byKey[key])
	}, ttl)
}

// Statistics returns the shared cache statistics
func (c *Cache) Statistics() fleetcache.Statistics {
	return c.cache.Statistics()
}

// ListFetch caches the pages returned by fetch as tagged list entries, so
// InvalidateInspection also drops the controller pages that show it
func (c *Cache) ListFetch(ttl time.Duration, fetch paginate.FetchFunc[Inspection]) paginate.FetchFunc[Inspection] {
	return func(ctx context.Context, q paginate.Query) (paginate.Result[Inspection], error) {
		if page, err := c.List(q); err == nil {
			return paginate.Result[Inspection]{Data: page.Inspections, Total: page.Total, CacheHit: true}, nil
		}

		res, err := fetch(ctx, q)
		if err != nil {
			return res, err
		}
		page := ListPage{Inspections: res.Data, Total: res.Total, Page: q.Page, Limit: q.PageSize}
		if err := c.CacheList(q, page, ttl); err != nil {
			c.log.Warn("list cache write failed", logger.Error(err))
		}
		return res, nil
	}
}
