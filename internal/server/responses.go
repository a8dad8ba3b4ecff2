package server

import (
	"time"

	"GEMSentinel/internal/model"
	"GEMSentinel/internal/scheduler"
	"GEMSentinel/internal/strategy"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type windowResponse struct {
	AsOf  string `json:"as_of"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func newWindowResponse(asOf time.Time, w model.Window) windowResponse {
	return windowResponse{
		AsOf:  asOf.Format(dateLayout),
		Start: w.Start.Format(dateLayout),
		End:   w.End.Format(dateLayout),
	}
}

type resultResponse struct {
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Category   string          `json:"category"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	StartPrice decimal.Decimal `json:"start_price"`
	EndPrice   decimal.Decimal `json:"end_price"`
	ReturnPct  decimal.Decimal `json:"return_pct"`
}

type exclusionResponse struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type signalDecision struct {
	Action string         `json:"action"`
	Leader resultResponse `json:"leader"`
	Chosen resultResponse `json:"chosen"`
}

// SignalResponse is the JSON document describing one run.
type SignalResponse struct {
	RunID      string              `json:"run_id"`
	Window     windowResponse      `json:"window"`
	Ranked     []resultResponse    `json:"ranked"`
	Exclusions []exclusionResponse `json:"exclusions"`
	Signal     *signalDecision     `json:"signal"`
	Error      string              `json:"error,omitempty"`
}

func newResultResponse(r model.InstrumentResult) resultResponse {
	return resultResponse{
		Name:       r.Instrument.Name,
		Symbol:     r.Instrument.Symbol,
		Category:   r.Instrument.Category.String(),
		StartDate:  r.StartDate.Format(dateLayout),
		EndDate:    r.EndDate.Format(dateLayout),
		StartPrice: r.DisplayStartPrice(),
		EndPrice:   r.DisplayEndPrice(),
		ReturnPct:  r.DisplayReturnPct(),
	}
}

// NewSignalResponse builds the document for run; err is the run-level error, if any.
func NewSignalResponse(run *scheduler.Run, err error) SignalResponse {
	resp := SignalResponse{
		RunID:      run.ID,
		Window:     newWindowResponse(run.AsOf, run.Window),
		Ranked:     []resultResponse{},
		Exclusions: []exclusionResponse{},
	}
	if err != nil {
		resp.Error = strategy.ReasonCode(err)
	}
	ev := run.Evaluation
	if ev == nil {
		return resp
	}
	for _, r := range ev.Ranked {
		resp.Ranked = append(resp.Ranked, newResultResponse(r))
	}
	for _, ex := range ev.Exclusions {
		resp.Exclusions = append(resp.Exclusions, exclusionResponse{
			Name:    ex.Instrument.Name,
			Symbol:  ex.Instrument.Symbol,
			Reason:  strategy.ReasonCode(ex.Reason),
			Details: ex.Reason.Error(),
		})
	}
	if ev.Signal != nil {
		resp.Signal = &signalDecision{
			Action: string(ev.Signal.Action),
			Leader: newResultResponse(ev.Signal.Leader),
			Chosen: newResultResponse(ev.Signal.Chosen),
		}
	}
	return resp
}
