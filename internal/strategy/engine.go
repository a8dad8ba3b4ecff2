package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"GEMSentinel/internal/calculator"
	"GEMSentinel/internal/model"

	"github.com/rs/zerolog/log"
)

// DefaultBufferDays is how far past the window end bars are requested, so the last
// trading day on or before the end is captured across holidays.
const DefaultBufferDays = 5

// PriceProvider supplies daily bars for a symbol over an inclusive date range.
type PriceProvider interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
}

// Engine evaluates the GEM signal for a set of instruments.
type Engine struct {
	Provider   PriceProvider
	Workers    int
	BufferDays int
	Progress   Progress
}

// NewEngine creates an Engine fetching up to workers instruments concurrently.
func NewEngine(provider PriceProvider, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		Provider:   provider,
		Workers:    workers,
		BufferDays: DefaultBufferDays,
		Progress:   NopProgress{},
	}
}

// Evaluation is the outcome of one run.
type Evaluation struct {
	Window     model.Window
	Ranked     []model.InstrumentResult
	Exclusions []model.Exclusion
	Signal     *model.Signal
}

type outcome struct {
	result model.InstrumentResult
	err    error
}

// Evaluate computes returns for all instruments, ranks them and derives the signal.
//
// On ErrNoDataAvailable the returned Evaluation holds only the exclusions. On
// ErrNoSafeHavenAvailable it also holds the ranking, but no signal.
func (e *Engine) Evaluate(ctx context.Context, instruments []model.Instrument, window model.Window) (*Evaluation, error) {
	if err := model.ValidateUniverse(instruments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUniverse, err)
	}

	outcomes := e.collect(ctx, instruments, window)

	eval := &Evaluation{Window: window}
	results := make([]model.InstrumentResult, 0, len(instruments))
	for i, o := range outcomes {
		if o.err != nil {
			log.Warn().Str("symbol", instruments[i].Symbol).Err(o.err).Msg("instrument excluded")
			eval.Exclusions = append(eval.Exclusions, model.Exclusion{Instrument: instruments[i], Reason: o.err})
			continue
		}
		results = append(results, o.result)
	}
	if len(results) == 0 {
		return eval, ErrNoDataAvailable
	}

	eval.Ranked = Rank(results)
	signal, err := Decide(eval.Ranked)
	if err != nil {
		return eval, err
	}
	eval.Signal = signal
	return eval, nil
}

// collect runs evaluateInstrument on a bounded worker pool. Outcomes keep the input order.
func (e *Engine) collect(ctx context.Context, instruments []model.Instrument, window model.Window) []outcome {
	total := len(instruments)
	outcomes := make([]outcome, total)
	progress := e.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	var (
		mu        sync.Mutex
		completed int
		wg        sync.WaitGroup
	)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				inst := instruments[i]
				mu.Lock()
				progress.Status(inst, fmt.Sprintf("Fetching data for %s...", inst.Name))
				mu.Unlock()

				res, err := e.evaluateInstrument(ctx, inst, window)
				outcomes[i] = outcome{result: res, err: err}

				mu.Lock()
				completed++
				progress.Advance(completed, total)
				mu.Unlock()
			}
		}()
	}
	for i := range instruments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func (e *Engine) evaluateInstrument(ctx context.Context, inst model.Instrument, window model.Window) (model.InstrumentResult, error) {
	fetchEnd := window.End.AddDate(0, 0, e.BufferDays)
	bars, err := e.Provider.FetchDailyBars(ctx, inst.Symbol, window.Start, fetchEnd)
	if err != nil {
		return model.InstrumentResult{}, &InstrumentError{Symbol: inst.Symbol, Kind: ErrDataUnavailable, Cause: err}
	}
	if len(bars) == 0 {
		return model.InstrumentResult{}, &InstrumentError{
			Symbol: inst.Symbol,
			Kind:   ErrDataUnavailable,
			Cause:  errors.New("empty series"),
		}
	}
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) }) {
		sorted := make([]model.OHLCV, len(bars))
		copy(sorted, bars)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
		bars = sorted
	}

	r, err := calculator.CalculateReturn(bars, window)
	if err != nil {
		return model.InstrumentResult{}, &InstrumentError{Symbol: inst.Symbol, Kind: err}
	}

	log.Debug().
		Str("symbol", inst.Symbol).
		Time("start_date", r.Start.Date).
		Time("end_date", r.End.Date).
		Float64("return_pct", r.Pct).
		Msg("instrument evaluated")

	return model.InstrumentResult{
		Instrument: inst,
		StartDate:  r.Start.Date,
		EndDate:    r.End.Date,
		StartPrice: r.Start.Close,
		EndPrice:   r.End.Close,
		ReturnPct:  r.Pct,
	}, nil
}
