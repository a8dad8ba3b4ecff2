// Package cache stores fetched price history keyed by (source, symbol, start, end).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GEMSentinel/internal/model"
)

// Key identifies one fetched series.
type Key struct {
	Source string
	Symbol string
	Start  time.Time
	End    time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("gem:bars:%s:%s:%s:%s", k.Source, k.Symbol,
		k.Start.Format("2006-01-02"), k.End.Format("2006-01-02"))
}

// PriceCache persists fetched bars between runs.
type PriceCache interface {
	Get(ctx context.Context, key Key) ([]model.OHLCV, bool, error)
	Put(ctx context.Context, key Key, bars []model.OHLCV) error
	Close() error
}

type cachedBar struct {
	Date   string  `json:"d"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

func encodeBars(bars []model.OHLCV) ([]byte, error) {
	out := make([]cachedBar, len(bars))
	for i, b := range bars {
		out[i] = cachedBar{
			Date:   b.Date.Format("2006-01-02"),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return json.Marshal(out)
}

func decodeBars(data []byte) ([]model.OHLCV, error) {
	var in []cachedBar
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode cached bars: %w", err)
	}
	bars := make([]model.OHLCV, len(in))
	for i, b := range in {
		d, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("decode cached bar date %q: %w", b.Date, err)
		}
		bars[i] = model.OHLCV{Date: d, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return bars, nil
}
