// Command fleetcache serves the fleet inspection and parts read models through
// the shared cache and exposes its metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	"github.com/hmanprod/fleetmada-sub008/config"
	"github.com/hmanprod/fleetmada-sub008/inspection"
	"github.com/hmanprod/fleetmada-sub008/internal/logger"
	"github.com/hmanprod/fleetmada-sub008/metrics"
	"github.com/hmanprod/fleetmada-sub008/parts"
	"github.com/hmanprod/fleetmada-sub008/source/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "fleetcache.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetcache: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fleetcache stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("fleetcache stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts, err := cfg.CacheOptions()
	if err != nil {
		return err
	}
	opts = append(opts, fleetcache.WithLogger(log))

	if cfg.Metrics.Enabled {
		exporter, err := metrics.NewPrometheusExporter(metrics.PrometheusOptions{
			Namespace:  cfg.Metrics.Namespace,
			Name:       "fleet",
			Registerer: reg,
		})
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, fleetcache.WithMetrics(exporter))
	}

	l2, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	if l2 != nil {
		opts = append(opts, fleetcache.WithStore(l2))
		log.Info("l2 store enabled", slog.Bool("redis", cfg.Redis.URL != ""))
	}

	// The cache owns the store from here on and closes it.
	cache, err := fleetcache.New[any](opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn("failed to close cache", logger.Error(err))
		}
	}()

	app := &application{
		cfg:         cfg,
		log:         log,
		cache:       cache,
		inspections: inspection.NewCache(cache, log),
	}

	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Database.URL))
		if err != nil {
			return err
		}
		defer pool.Close()
		app.attachDatabase(pool)
		log.Info("postgres source enabled")
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           app.routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *application) attachDatabase(pool *pgxpool.Pool) {
	source := postgres.NewInspectionSource(pool, a.log)
	a.loadInspection = source.Get
	a.listInspections = a.inspections.ListFetch(inspection.DefaultListTTL, source.Fetch)
	a.parts = parts.NewAnalyzer(postgres.NewPartRepository(pool), a.cache, parts.WithLogger(a.log))
}
