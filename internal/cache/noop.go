package cache

import (
	"context"

	"GEMSentinel/internal/model"
)

// NoopCache is a no-op implementation used when no cache is configured.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Get(context.Context, Key) ([]model.OHLCV, bool, error) { return nil, false, nil }
func (n *NoopCache) Put(context.Context, Key, []model.OHLCV) error         { return nil }
func (n *NoopCache) Close() error                                          { return nil }
