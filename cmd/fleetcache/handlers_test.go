package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/config"
	cacheErrors "github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/inspection"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/metrics"
	"github.com/hmanprod/fleetmada-sub008/paginate"
	"github.com/hmanprod/fleetmada-sub008/parts"
)

func newTestApp(t *testing.T) (*application, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	exporter, err := metrics.NewPrometheusExporter(metrics.PrometheusOptions{Registerer: reg})
	require.NoError(t, err)

	cache, err := fleetcache.New[any](fleetcache.WithMaxSize(100), fleetcache.WithMetrics(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	log := logger.Discard()
	return &application{
		cfg:         config.Default(),
		log:         log,
		cache:       cache,
		inspections: inspection.NewCache(cache, log),
	}, reg
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	app, reg := newTestApp(t)
	h := app.routes(reg)

	rec := get(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, _ = app.cache.Get("missing")
	rec = get(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fleetcache_cache_misses_total")
}

func TestWithoutSources(t *testing.T) {
	app, reg := newTestApp(t)
	h := app.routes(reg)

	for _, target := range []string{"/inspections", "/inspections/1", "/parts/low-stock"} {
		rec := get(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestInspectionDetail(t *testing.T) {
	app, reg := newTestApp(t)
	var loads atomic.Int32
	app.loadInspection = func(_ context.Context, id string) (inspection.Inspection, error) {
		loads.Add(1)
		if id == "missing" {
			return inspection.Inspection{}, cacheErrors.WrapError("Get", id, cacheErrors.ErrKeyNotFound)
		}
		return inspection.Inspection{ID: id, Title: "Brakes", Status: inspection.StatusScheduled}, nil
	}
	h := app.routes(reg)

	for range 2 {
		rec := get(t, h, http.MethodGet, "/inspections/i-1")
		require.Equal(t, http.StatusOK, rec.Code)
		var got inspection.Inspection
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Brakes", got.Title)
	}
	assert.Equal(t, int32(1), loads.Load())

	rec := get(t, h, http.MethodDelete, "/inspections/i-1/cache")
	assert.Equal(t, http.StatusOK, rec.Code)
	get(t, h, http.MethodGet, "/inspections/i-1")
	assert.Equal(t, int32(2), loads.Load())

	rec = get(t, h, http.MethodGet, "/inspections/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInspectionList(t *testing.T) {
	app, reg := newTestApp(t)
	var seen paginate.Query
	app.listInspections = app.inspections.ListFetch(inspection.DefaultListTTL,
		func(_ context.Context, q paginate.Query) (paginate.Result[inspection.Inspection], error) {
			seen = q
			return paginate.Result[inspection.Inspection]{
				Data:  []inspection.Inspection{{ID: "i-1", Status: inspection.StatusCompleted}},
				Total: 1,
			}, nil
		})
	h := app.routes(reg)

	rec := get(t, h, http.MethodGet, "/inspections?page=2&pageSize=5&search=brake&status=COMPLETED&bogus=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, seen.Page)
	assert.Equal(t, 5, seen.PageSize)
	assert.Equal(t, "brake", seen.Search)
	assert.Equal(t, paginate.Filters{"status": "COMPLETED"}, seen.Filters)

	var got paginate.Result[inspection.Inspection]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	rec = get(t, h, http.MethodGet, "/inspections?pageSize=1000000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPageSize, seen.PageSize)
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "i-1", got.Data[0].ID)
}

func TestLowStock(t *testing.T) {
	app, reg := newTestApp(t)
	app.parts = parts.NewAnalyzer(parts.SourceFunc(func(context.Context) ([]parts.Part, error) {
		return []parts.Part{
			{ID: "p1", Number: "P-1", Quantity: 0, MinimumStock: 5, Cost: 10},
			{ID: "p2", Number: "P-2", Quantity: 50, MinimumStock: 5, Cost: 10},
		}, nil
	}), app.cache)
	h := app.routes(reg)

	rec := get(t, h, http.MethodGet, "/parts/low-stock?severity=all")
	require.Equal(t, http.StatusOK, rec.Code)
	var got parts.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Parts, 1)
	assert.Equal(t, "P-1", got.Parts[0].Number)

	rec = get(t, h, http.MethodDelete, "/parts/low-stock/cache")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidated":1}`, rec.Body.String())
}

func TestCacheDebug(t *testing.T) {
	app, reg := newTestApp(t)
	h := app.routes(reg)
	require.NoError(t, app.cache.Set("k", "v", 0))

	rec := get(t, h, http.MethodGet, "/debug/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats fleetcache.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Size)

	rec = get(t, h, http.MethodDelete, "/debug/cache")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, app.cache.Size())
}

func TestIntParam(t *testing.T) {
	assert.Equal(t, 3, intParam("3", 1))
	assert.Equal(t, 1, intParam("", 1))
	assert.Equal(t, 1, intParam("-4", 1))
	assert.Equal(t, 1, intParam("x", 1))
}
