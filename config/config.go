// Package config loads the process configuration from defaults, an optional
// YAML file, a .env file and the environment, in that order.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	fleetcache "github.com/hmanprod/fleetmada-sub008"
	cacheErrors "github.com/hmanprod/fleetmada-sub008/errors"
	"github.com/hmanprod/fleetmada-sub008/paginate"
	"github.com/hmanprod/fleetmada-sub008/policy"
	"github.com/hmanprod/fleetmada-sub008/store"
)

// Config is the full process configuration
type Config struct {
	Cache      CacheConfig      `yaml:"cache"`
	Pagination PaginationConfig `yaml:"pagination"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// CacheConfig configures the shared cache
type CacheConfig struct {
	TTL                time.Duration `yaml:"ttl" env:"FLEETCACHE_TTL"`
	MaxSize            int           `yaml:"max_size" env:"FLEETCACHE_MAX_SIZE"`
	EvictionFraction   float64       `yaml:"eviction_fraction" env:"FLEETCACHE_EVICTION_FRACTION"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval" env:"FLEETCACHE_CLEANUP_INTERVAL"`
	Policy             string        `yaml:"policy" env:"FLEETCACHE_POLICY"`
	Compression        string        `yaml:"compression" env:"FLEETCACHE_COMPRESSION"`
	CompressionMinSize int           `yaml:"compression_min_size" env:"FLEETCACHE_COMPRESSION_MIN_SIZE"`
	StoreTimeout       time.Duration `yaml:"store_timeout" env:"FLEETCACHE_STORE_TIMEOUT"`
	// StoreDir enables the file L2 store when Redis is not configured
	StoreDir           string        `yaml:"store_dir" env:"FLEETCACHE_STORE_DIR"`
}

// PaginationConfig configures the pagination controllers
type PaginationConfig struct {
	PageSize int           `yaml:"page_size" env:"FLEETCACHE_PAGE_SIZE"`
	MaxPages int           `yaml:"max_pages" env:"FLEETCACHE_MAX_PAGES"`
	Debounce time.Duration `yaml:"debounce" env:"FLEETCACHE_DEBOUNCE"`
}

// RedisConfig enables the Redis L2 store when URL is set
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX"`
}

// DatabaseConfig enables the PostgreSQL source when URL is set
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Addr      string `yaml:"addr" env:"METRICS_ADDR"`
	Namespace string `yaml:"namespace" env:"METRICS_NAMESPACE"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			TTL:                5 * time.Minute,
			MaxSize:            2000,
			EvictionFraction:   fleetcache.DefaultEvictionFraction,
			CleanupInterval:    time.Minute,
			Policy:             string(policy.NameLRU),
			Compression:        fleetcache.GzipCompression.String(),
			CompressionMinSize: 1024,
			StoreTimeout:       fleetcache.DefaultStoreTimeout,
		},
		Pagination: PaginationConfig{
			PageSize: paginate.DefaultPageSize,
			MaxPages: paginate.DefaultMaxPages,
			Debounce: paginate.DefaultDebounce,
		},
		Redis: RedisConfig{
			Prefix: "fleetcache:",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Addr:      ":9090",
			Namespace: "fleetcache",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error. Environment variables win over the file.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := loadDotenv(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Validate rejects unusable settings
func (c *Config) Validate() error {
	var errs []error
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl: %w", cacheErrors.ErrInvalidTTL))
	}
	if c.Cache.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("cache max_size: %w", cacheErrors.ErrInvalidSize))
	}
	if c.Cache.EvictionFraction <= 0 || c.Cache.EvictionFraction > 1 {
		errs = append(errs, fmt.Errorf("cache eviction_fraction: %w", cacheErrors.ErrInvalidFraction))
	}
	if c.Cache.Compression != "" {
		if _, err := fleetcache.ParseCompressionAlgorithm(c.Cache.Compression); err != nil {
			errs = append(errs, fmt.Errorf("cache compression %q: %w", c.Cache.Compression, err))
		}
	}
	switch policy.Name(strings.ToLower(c.Cache.Policy)) {
	case policy.NameLRU, policy.NameLFU, policy.NameFIFO, "":
	default:
		errs = append(errs, fmt.Errorf("cache policy %q: %w", c.Cache.Policy, cacheErrors.ErrInvalidOperation))
	}
	if c.Pagination.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("pagination page_size: %w", cacheErrors.ErrInvalidPageSize))
	}
	return errors.Join(errs...)
}

// HasStore reports whether an L2 store is configured
func (c *Config) HasStore() bool {
	return c.Redis.URL != "" || c.Cache.StoreDir != ""
}

// OpenStore connects the configured L2 store. Redis wins over the file
// store. It returns nil when neither is configured.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch {
	case c.Redis.URL != "":
		redisCfg := store.DefaultRedisConfig()
		redisCfg.URL = c.Redis.URL
		if c.Redis.Prefix != "" {
			redisCfg.Prefix = c.Redis.Prefix
		}
		return store.NewRedisStore(ctx, redisCfg)
	case c.Cache.StoreDir != "":
		fileCfg := store.DefaultFileConfig()
		fileCfg.Directory = c.Cache.StoreDir
		// Payloads are already compressed by the codec.
		fileCfg.CompressionEnabled = false
		return store.NewFileStore(ctx, fileCfg)
	default:
		return nil, nil
	}
}

// Codec builds the cache codec. The codec is required when an L2 store is
// configured; an empty compression setting then means plain JSON.
func (c *Config) Codec() (*fleetcache.Codec, error) {
	name := c.Cache.Compression
	if name == "" {
		if !c.HasStore() {
			return nil, nil
		}
		name = fleetcache.NoCompression.String()
	}
	algo, err := fleetcache.ParseCompressionAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return fleetcache.NewCodec(fleetcache.CompressionConfig{
		Algorithm: algo,
		MinSize:   c.Cache.CompressionMinSize,
	})
}

// CacheOptions returns the cache options described by the configuration.
// The caller adds the store, the logger and the metrics exporter.
func (c *Config) CacheOptions() ([]fleetcache.Option, error) {
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}
	opts := []fleetcache.Option{
		fleetcache.WithMaxSize(c.Cache.MaxSize),
		fleetcache.WithDefaultTTL(c.Cache.TTL),
		fleetcache.WithEvictionFraction(c.Cache.EvictionFraction),
		fleetcache.WithCleanupInterval(c.Cache.CleanupInterval),
		fleetcache.WithPolicy(policy.Name(strings.ToLower(c.Cache.Policy))),
		fleetcache.WithStoreTimeout(c.Cache.StoreTimeout),
	}
	if codec != nil {
		opts = append(opts, fleetcache.WithCodec(codec))
	}
	return opts, nil
}

// PaginationOptions returns the controller options described by cfg
func PaginationOptions[T any](cfg *Config) []paginate.Option[T] {
	return []paginate.Option[T]{
		paginate.WithPageSize[T](cfg.Pagination.PageSize),
		paginate.WithMaxPages[T](cfg.Pagination.MaxPages),
		paginate.WithDebounce[T](cfg.Pagination.Debounce),
	}
}
