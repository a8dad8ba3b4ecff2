package collector

import (
	"context"
	"time"

	"GEMSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily price history.
// start and end are inclusive calendar dates; returned bars are date ascending.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
