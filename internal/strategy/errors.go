package strategy

import (
	"errors"
	"fmt"

	"GEMSentinel/internal/calculator"
)

// Per-instrument failures. They exclude the instrument from the run but never abort it.
var (
	ErrDataUnavailable        = errors.New("data unavailable")
	ErrInsufficientWindowData = calculator.ErrInsufficientWindowData
	ErrDegenerateReturn       = calculator.ErrDegenerateReturn
)

// Run-level failures.
var (
	ErrNoDataAvailable      = errors.New("no data available for any instrument")
	ErrNoSafeHavenAvailable = errors.New("no safe haven instrument produced a result")
	ErrInvalidUniverse      = errors.New("invalid instrument universe")
)

// InstrumentError describes why a single instrument was excluded.
// errors.Is matches both Kind and Cause.
type InstrumentError struct {
	Symbol string
	Kind   error
	Cause  error
}

func (e *InstrumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Symbol, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Symbol, e.Kind)
}

func (e *InstrumentError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// ReasonCode returns a stable short code for an exclusion or run error.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInsufficientWindowData):
		return "insufficient_window_data"
	case errors.Is(err, ErrDegenerateReturn):
		return "degenerate_return"
	case errors.Is(err, ErrNoDataAvailable):
		return "no_data_available"
	case errors.Is(err, ErrNoSafeHavenAvailable):
		return "no_safe_haven_available"
	case errors.Is(err, ErrInvalidUniverse):
		return "invalid_universe"
	default:
		return "error"
	}
}
