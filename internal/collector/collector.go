package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GEMSentinel/internal/cache"
	"GEMSentinel/internal/metrics"
	"GEMSentinel/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Options tunes the Collector. Zero values disable the corresponding feature.
type Options struct {
	Timeout         time.Duration // per fetch
	RateLimit       float64       // requests per second
	Burst           int
	BreakerFailures uint32 // consecutive failures before the breaker opens
	BreakerCooldown time.Duration
	Cache           cache.PriceCache
	Metrics         *metrics.Metrics
}

// Collector wraps a Fetcher with a cache, a rate limiter, a per-call timeout and
// one circuit breaker per symbol. It is safe for concurrent use.
type Collector struct {
	Fetcher  Fetcher
	cache    cache.PriceCache
	limiter  *rate.Limiter
	timeout  time.Duration
	metrics  *metrics.Metrics
	failures uint32
	cooldown time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	c := &Collector{
		Fetcher: fetcher,
		cache:   opts.Cache,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
	if c.cache == nil {
		c.cache = cache.NewNoopCache()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	c.failures = opts.BreakerFailures
	if c.failures == 0 {
		c.failures = 5
	}
	c.cooldown = opts.BreakerCooldown
	if c.cooldown <= 0 {
		c.cooldown = time.Minute
	}
	c.breakers = make(map[string]*gobreaker.CircuitBreaker)
	return c
}

func (c *Collector) Name() string { return c.Fetcher.Name() }

// breaker returns the circuit breaker for symbol, creating it on first use.
// A symbol without history trips only its own breaker.
func (c *Collector) breaker(symbol string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[symbol]; ok {
		return cb
	}
	failures := c.failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.Fetcher.Name() + ":" + symbol,
		MaxRequests: 1,
		Timeout:     c.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("price source circuit breaker state changed")
		},
	})
	c.breakers[symbol] = cb
	return cb
}

// FetchDailyBars serves from the cache when possible, otherwise fetches through the
// rate limiter and circuit breaker and stores non-empty results.
func (c *Collector) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	key := cache.Key{Source: c.Fetcher.Name(), Symbol: symbol, Start: model.DateOf(start), End: model.DateOf(end)}

	bars, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Str("key", key.String()).Err(err).Msg("price cache lookup failed")
	}
	c.metrics.ObserveCache(ok)
	if ok {
		log.Debug().Str("key", key.String()).Int("bars", len(bars)).Msg("price cache hit")
		return bars, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	began := time.Now()
	out, err := c.breaker(symbol).Execute(func() (interface{}, error) {
		return c.Fetcher.FetchDailyBars(fetchCtx, symbol, start, end)
	})
	c.metrics.ObserveFetch(c.Fetcher.Name(), err, time.Since(began))
	if err != nil {
		return nil, fmt.Errorf("%s fetch %s: %w", c.Fetcher.Name(), symbol, err)
	}

	bars, _ = out.([]model.OHLCV)
	log.Debug().Str("source", c.Fetcher.Name()).Str("symbol", symbol).Int("bars", len(bars)).
		Dur("took", time.Since(began)).Msg("price history fetched")

	if len(bars) > 0 {
		if err := c.cache.Put(ctx, key, bars); err != nil {
			log.Warn().Str("key", key.String()).Err(err).Msg("price cache store failed")
		}
	}
	return bars, nil
}
