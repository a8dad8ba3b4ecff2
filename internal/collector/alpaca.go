package collector

import (
	"context"
	"fmt"
	"time"

	"GEMSentinel/internal/model"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API (US listings only).
type AlpacaFetcher struct {
	client *marketdata.Client
}

// NewAlpacaFetcher creates a fetcher authenticated with the given key pair.
// An empty baseURL uses the SDK default.
func NewAlpacaFetcher(apiKey, apiSecret, baseURL string) *AlpacaFetcher {
	return &AlpacaFetcher{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Start:      model.DateOf(start),
		End:        model.DateOf(end).AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca get bars: %w", err)
	}

	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		out = append(out, model.OHLCV{
			Date:   model.DateOf(b.Timestamp.In(newYork)),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return out, nil
}

// newYork is the exchange calendar for Alpaca bars. Falls back to a fixed EST offset
// when the tz database is unavailable.
var newYork = func() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}()
