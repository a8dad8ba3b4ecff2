package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GEMSentinel/internal/model"

	"github.com/go-redis/redis/v8"
)

// RedisCache shares fetched bars between processes through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key Key) ([]model.OHLCV, bool, error) {
	val, err := r.client.Get(ctx, key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	bars, err := decodeBars([]byte(val))
	if err != nil {
		return nil, false, err
	}
	return bars, true, nil
}

func (r *RedisCache) Put(ctx context.Context, key Key, bars []model.OHLCV) error {
	payload, err := encodeBars(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}
	if err := r.client.Set(ctx, key.String(), string(payload), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
