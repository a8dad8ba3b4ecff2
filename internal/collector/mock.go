package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"GEMSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64 // when > 0, symbols without fixed data get a generated series
	Series map[string][]model.OHLCV
	Errors map[string]error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Series[symbol]; ok {
		return bars, nil
	}
	if m.Price > 0 {
		return generateMockBars(m.Price, start, end), nil
	}
	return nil, fmt.Errorf("mock: no data for %s", symbol)
}

// Calls returns how many times FetchDailyBars was invoked.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

// generateMockBars produces one bar per weekday in [start, end] with a slowly rising close.
func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := model.DateOf(start); !d.After(model.DateOf(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.OHLCV{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
