package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Date   time.Time // trading day, UTC midnight
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily bars of one instrument, date ascending. Gaps are allowed.
type PriceSeries struct {
	Symbol string
	Bars   []OHLCV
}

// DateOf truncates t to its calendar day (in t's own location) and returns it as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window is the inclusive lookback interval used for the momentum calculation.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar day of t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(w.Start)) && !d.After(DateOf(w.End))
}

func (w Window) String() string {
	return w.Start.Format("2006-01-02") + " .. " + w.End.Format("2006-01-02")
}
