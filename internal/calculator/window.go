package calculator

import (
	"time"

	"GEMSentinel/internal/model"
)

// ComputeWindow derives the 12-1 momentum lookback window from the reference date.
// End is the last day of the month two months before ref; Start is the day after End one year earlier.
func ComputeWindow(ref time.Time) model.Window {
	y, m, _ := ref.Date()
	firstOfThisMonth := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	firstOfLastMonth := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfLastMonth.AddDate(0, 0, -1)

	// End is always a month end, so "End - 1 year + 1 day" is the first of End's following
	// month a year back. Going through firstOfLastMonth avoids normalising Feb 29 into March.
	start := firstOfLastMonth.AddDate(-1, 0, 0)

	return model.Window{Start: start, End: end}
}
