package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentResult is the momentum of one instrument over the window.
type InstrumentResult struct {
	Instrument Instrument
	StartDate  time.Time
	EndDate    time.Time
	StartPrice float64
	EndPrice   float64
	ReturnPct  float64
}

// DisplayStartPrice returns the start price rounded to 2 decimal places.
func (r InstrumentResult) DisplayStartPrice() decimal.Decimal {
	return decimal.NewFromFloat(r.StartPrice).Round(2)
}

// DisplayEndPrice returns the end price rounded to 2 decimal places.
func (r InstrumentResult) DisplayEndPrice() decimal.Decimal {
	return decimal.NewFromFloat(r.EndPrice).Round(2)
}

// DisplayReturnPct returns the return percentage rounded to 2 decimal places.
func (r InstrumentResult) DisplayReturnPct() decimal.Decimal {
	return decimal.NewFromFloat(r.ReturnPct).Round(2)
}

// Exclusion records an instrument that was left out of the ranking and why.
type Exclusion struct {
	Instrument Instrument
	Reason     error
}

// Action is the decision taken by the GEM rule.
type Action string

const (
	ActionBuyRiskAsset    Action = "BUY_RISK_ASSET"
	ActionFleeToSafeHaven Action = "FLEE_TO_SAFE_HAVEN"
)

// Signal is the final output of the decision rule.
type Signal struct {
	Action Action
	Leader InstrumentResult // top of the ranking
	Chosen InstrumentResult // instrument to hold
}
