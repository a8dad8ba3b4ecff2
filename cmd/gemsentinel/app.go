package main

import (
	"context"
	"fmt"
	"time"

	"GEMSentinel/internal/cache"
	"GEMSentinel/internal/collector"
	"GEMSentinel/internal/config"
	"GEMSentinel/internal/logger"
	"GEMSentinel/internal/metrics"
	"GEMSentinel/internal/model"
	"GEMSentinel/internal/strategy"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type globalOptions struct {
	configPath string
	logLevel   string
	provider   string

	cfg *config.Config
}

// load reads and validates the configuration, then initialises logging.
func (o *globalOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.provider != "" {
		cfg.DataSource.Provider = o.provider
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	o.cfg = cfg
	return nil
}

// app holds the components shared by run and serve.
type app struct {
	cfg         *config.Config
	instruments []model.Instrument
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	cache       cache.PriceCache
	collector   *collector.Collector
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	instruments, err := cfg.InstrumentList()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", fetcher.Name()).Int("instruments", len(instruments)).Msg("data source ready")

	pc := newCache(ctx, cfg)
	col := collector.NewCollector(fetcher, collector.Options{
		Timeout:   cfg.DataSource.Timeout,
		RateLimit: cfg.DataSource.RateLimitRPS,
		Burst:     cfg.DataSource.RateLimitBurst,
		Cache:     pc,
		Metrics:   m,
	})

	return &app{
		cfg:         cfg,
		instruments: instruments,
		registry:    reg,
		metrics:     m,
		cache:       pc,
		collector:   col,
	}, nil
}

func (a *app) engine() *strategy.Engine {
	e := strategy.NewEngine(a.collector, a.cfg.Engine.Workers)
	e.BufferDays = a.cfg.Engine.BufferDays
	return e
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("close price cache")
	}
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy, ds.Timeout), nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.APIKey, ds.APISecret, ds.BaseURL), nil
	case "vstrader":
		return collector.NewVsTraderFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout), nil
	case "mock":
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data source provider %q", ds.Provider)
	}
}

// newCache opens the configured cache and falls back to no caching on failure.
func newCache(ctx context.Context, cfg *config.Config) cache.PriceCache {
	switch cfg.Cache.Driver {
	case "sqlite":
		c, err := cache.NewSQLiteCache(cfg.Cache.SQLitePath, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite cache failed, using noop")
			return cache.NewNoopCache()
		}
		return c
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := cache.NewRedisCache(pingCtx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("init redis cache failed, using noop")
			return cache.NewNoopCache()
		}
		return c
	default:
		return cache.NewNoopCache()
	}
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", v)
	}
	return t, nil
}
