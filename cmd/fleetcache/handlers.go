package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/config"
	cacheErrors "github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/inspection"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/paginate"
	"github.com/hmanprod/fleetmada-sub008/parts"
)

// application holds the collaborators behind the HTTP handlers. The database
// backed fields stay nil when no DATABASE_URL is configured.
type application struct {
	cfg         *config.Config
	log         *slog.Logger
	cache       *fleetcache.Cache[any]
	inspections *inspection.Cache

	loadInspection  inspection.Loader
	listInspections paginate.FetchFunc[inspection.Inspection]
	parts           *parts.Analyzer
}

// listParams are the query parameters accepted by /inspections besides
// page, pageSize and search. Each one becomes an exact-match filter.
var listParams = []string{"status", "vehicleId", "inspectorName", "complianceStatus"}

// maxPageSize caps pageSize and limit query parameters
const maxPageSize = 200

func (a *application) routes(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /debug/cache", a.cacheStats)
	mux.HandleFunc("DELETE /debug/cache", a.clearCache)
	mux.HandleFunc("GET /inspections", a.listHandler)
	mux.HandleFunc("GET /inspections/{id}", a.detailHandler)
	mux.HandleFunc("DELETE /inspections/{id}/cache", a.invalidateHandler)
	mux.HandleFunc("GET /parts/low-stock", a.lowStockHandler)
	mux.HandleFunc("DELETE /parts/low-stock/cache", a.invalidatePartsHandler)
	return mux
}

func (a *application) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cache.Statistics())
}

func (a *application) clearCache(w http.ResponseWriter, _ *http.Request) {
	if err := a.cache.Clear(); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *application) listHandler(w http.ResponseWriter, r *http.Request) {
	if a.listInspections == nil {
		http.Error(w, "no inspection source configured", http.StatusServiceUnavailable)
		return
	}
	values := r.URL.Query()
	q := paginate.Query{
		Page:     intParam(values.Get("page"), 1),
		PageSize: min(intParam(values.Get("pageSize"), a.cfg.Pagination.PageSize), maxPageSize),
		Search:   values.Get("search"),
	}
	filters := paginate.Filters{}
	for _, name := range listParams {
		if v := values.Get(name); v != "" {
			filters[name] = v
		}
	}
	q.Filters = filters.Active()

	res, err := a.listInspections(r.Context(), q)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *application) detailHandler(w http.ResponseWriter, r *http.Request) {
	if a.loadInspection == nil {
		http.Error(w, "no inspection source configured", http.StatusServiceUnavailable)
		return
	}
	i, err := a.inspections.Preload(r.Context(), r.PathValue("id"), a.loadInspection, inspection.DefaultDetailTTL)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (a *application) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	n := a.inspections.InvalidateInspection(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (a *application) lowStockHandler(w http.ResponseWriter, r *http.Request) {
	if a.parts == nil {
		http.Error(w, "no parts source configured", http.StatusServiceUnavailable)
		return
	}
	values := r.URL.Query()
	res, err := a.parts.LowStock(r.Context(), parts.Query{
		Severity:  parts.Severity(values.Get("severity")),
		Category:  values.Get("category"),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
		Limit:     min(intParam(values.Get("limit"), parts.DefaultLimit), maxPageSize),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *application) invalidatePartsHandler(w http.ResponseWriter, _ *http.Request) {
	if a.parts == nil {
		http.Error(w, "no parts source configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": a.parts.Invalidate()})
}

func (a *application) fail(w http.ResponseWriter, err error) {
	switch {
	case cacheErrors.IsKeyNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, cacheErrors.ErrInvalidOperation), cacheErrors.IsErrorType(err, cacheErrors.ErrorTypeValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		a.log.Error("request failed", logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func intParam(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
