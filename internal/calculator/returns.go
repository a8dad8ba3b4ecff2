package calculator

import (
	"errors"
	"math"

	"GEMSentinel/internal/model"
)

var (
	// ErrInsufficientWindowData means no bar falls inside the window.
	ErrInsufficientWindowData = errors.New("insufficient window data")
	// ErrDegenerateReturn means the start price cannot be used as a percentage base.
	ErrDegenerateReturn = errors.New("degenerate return")
)

// Return is the outcome of CalculateReturn.
type Return struct {
	Start model.OHLCV
	End   model.OHLCV
	Pct   float64
}

// CalculateReturn computes the percentage change between the first and the last close
// inside the window. Bars must be date ascending. Both bounds are applied: bars dated
// after End (the fetch buffer) and bars dated before Start are dropped, so a provider
// returning history before Start never moves the start price.
func CalculateReturn(bars []model.OHLCV, window model.Window) (Return, error) {
	first, last := -1, -1
	for i, b := range bars {
		if !window.Contains(b.Date) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return Return{}, ErrInsufficientWindowData
	}

	start, end := bars[first], bars[last]
	if !validPrice(start.Close) || start.Close <= 0 {
		return Return{}, ErrDegenerateReturn
	}
	if !validPrice(end.Close) {
		return Return{}, ErrDegenerateReturn
	}

	return Return{
		Start: start,
		End:   end,
		Pct:   (end.Close - start.Close) / start.Close * 100,
	}, nil
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}
