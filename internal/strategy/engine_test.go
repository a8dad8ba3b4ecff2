package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"GEMSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eimi = model.Instrument{Name: "EIMI (Emerging Mkt)", Symbol: "EIMI.L", Category: model.RiskAsset}
	iwda = model.Instrument{Name: "IWDA (World)", Symbol: "IWDA.L", Category: model.RiskAsset}
	cndx = model.Instrument{Name: "CNDX (Nasdaq 100)", Symbol: "CNDX.L", Category: model.RiskAsset}
	ib01 = model.Instrument{Name: "IB01 (Bonds 0-1y)", Symbol: "IB01.L", Category: model.SafeHaven}
	cbu0 = model.Instrument{Name: "CBU0 (Bonds 7-10y)", Symbol: "CBU0.L", Category: model.SafeHaven}

	universe = []model.Instrument{eimi, iwda, cndx, ib01, cbu0}

	testWindow = model.Window{
		Start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
)

type fetchCall struct {
	symbol     string
	start, end time.Time
}

// fakeProvider serves fixed series and records the requested ranges.
type fakeProvider struct {
	series map[string][]model.OHLCV
	errs   map[string]error

	mu    sync.Mutex
	calls []fetchCall
}

func (f *fakeProvider) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{symbol, start, end})
	f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if bars, ok := f.series[symbol]; ok {
		return bars, nil
	}
	return nil, fmt.Errorf("no history for %s", symbol)
}

// growth builds a series over testWindow whose first-to-last return is pct.
func growth(pct float64) []model.OHLCV {
	return []model.OHLCV{
		{Date: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC), Close: 100 + pct/3},
		{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Close: 100 + pct},
	}
}

func newTestEngine(p PriceProvider) *Engine {
	return NewEngine(p, 4)
}

func symbols(results []model.InstrumentResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Instrument.Symbol
	}
	return out
}

func TestEvaluate_BuyRiskAsset(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(2), "IWDA.L": growth(5), "CNDX.L": growth(-1),
		"IB01.L": growth(3), "CBU0.L": growth(-2),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)

	assert.Equal(t, []string{"IWDA.L", "IB01.L", "EIMI.L", "CNDX.L", "CBU0.L"}, symbols(ev.Ranked))
	require.NotNil(t, ev.Signal)
	assert.Equal(t, model.ActionBuyRiskAsset, ev.Signal.Action)
	assert.Equal(t, iwda, ev.Signal.Chosen.Instrument)
	assert.InDelta(t, 5.0, ev.Signal.Leader.ReturnPct, 1e-9)
	assert.Empty(t, ev.Exclusions)
}

func TestEvaluate_NegativeRiskLeaderFleesToSafeHaven(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(-3), "IWDA.L": growth(-8), "CNDX.L": growth(-10),
		"IB01.L": growth(-5), "CBU0.L": growth(-4),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)

	assert.Equal(t, eimi, ev.Ranked[0].Instrument)
	assert.Equal(t, model.ActionFleeToSafeHaven, ev.Signal.Action)
	assert.Equal(t, cbu0, ev.Signal.Chosen.Instrument, "best ranked safe haven")
	assert.Equal(t, eimi, ev.Signal.Leader.Instrument)
}

func TestEvaluate_SafeHavenLeader(t *testing.T) {
	for _, pct := range []float64{7, -0.5} {
		p := &fakeProvider{series: map[string][]model.OHLCV{
			"EIMI.L": growth(pct - 3), "IWDA.L": growth(pct - 2), "CNDX.L": growth(pct - 1),
			"IB01.L": growth(pct), "CBU0.L": growth(pct - 4),
		}}
		ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
		require.NoError(t, err)
		assert.Equal(t, model.ActionFleeToSafeHaven, ev.Signal.Action, "pct=%v", pct)
		assert.Equal(t, ib01, ev.Signal.Chosen.Instrument, "pct=%v", pct)
		assert.Equal(t, ev.Signal.Leader, ev.Signal.Chosen, "pct=%v", pct)
	}
}

func TestEvaluate_ZeroReturnLeaderIsNotRiskOn(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(0), "IWDA.L": growth(-1), "CNDX.L": growth(-1),
		"IB01.L": growth(-2), "CBU0.L": growth(-3),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)
	assert.Equal(t, model.ActionFleeToSafeHaven, ev.Signal.Action)
	assert.Equal(t, ib01, ev.Signal.Chosen.Instrument)
}

func TestEvaluate_StableTieBreak(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(4), "IWDA.L": growth(10), "CNDX.L": growth(10),
		"IB01.L": growth(1), "CBU0.L": growth(1),
	}}
	for i := 0; i < 20; i++ {
		ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
		require.NoError(t, err)
		assert.Equal(t, []string{"IWDA.L", "CNDX.L", "EIMI.L", "IB01.L", "CBU0.L"}, symbols(ev.Ranked))
	}
}

func TestEvaluate_AllFail(t *testing.T) {
	p := &fakeProvider{}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.ErrorIs(t, err, ErrNoDataAvailable)
	require.NotNil(t, ev)
	assert.Empty(t, ev.Ranked)
	assert.Nil(t, ev.Signal)
	require.Len(t, ev.Exclusions, len(universe))
	for i, ex := range ev.Exclusions {
		assert.Equal(t, universe[i], ex.Instrument)
		assert.ErrorIs(t, ex.Reason, ErrDataUnavailable)
	}
}

func TestEvaluate_PartialFailuresAreReported(t *testing.T) {
	timeout := errors.New("provider timeout")
	p := &fakeProvider{
		series: map[string][]model.OHLCV{
			"IWDA.L": growth(6),
			"CNDX.L": {
				{Date: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), Close: 0},
				{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Close: 50},
			},
			"IB01.L": {{Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Close: 100}},
			"CBU0.L": growth(1),
		},
		errs: map[string]error{"EIMI.L": timeout},
	}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)

	assert.Equal(t, []string{"IWDA.L", "CBU0.L"}, symbols(ev.Ranked))
	assert.Equal(t, iwda, ev.Signal.Chosen.Instrument)

	require.Len(t, ev.Exclusions, 3)
	assert.Equal(t, eimi, ev.Exclusions[0].Instrument)
	assert.ErrorIs(t, ev.Exclusions[0].Reason, ErrDataUnavailable)
	assert.ErrorIs(t, ev.Exclusions[0].Reason, timeout)
	assert.Equal(t, cndx, ev.Exclusions[1].Instrument)
	assert.ErrorIs(t, ev.Exclusions[1].Reason, ErrDegenerateReturn)
	assert.Equal(t, ib01, ev.Exclusions[2].Instrument)
	assert.ErrorIs(t, ev.Exclusions[2].Reason, ErrInsufficientWindowData)

	var ie *InstrumentError
	require.ErrorAs(t, ev.Exclusions[1].Reason, &ie)
	assert.Equal(t, "CNDX.L", ie.Symbol)
}

func TestEvaluate_NoSafeHavenAvailable(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(-3), "IWDA.L": growth(-8), "CNDX.L": growth(-10),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.ErrorIs(t, err, ErrNoSafeHavenAvailable)
	require.NotNil(t, ev)
	assert.Len(t, ev.Ranked, 3, "partial ranking is kept")
	assert.Nil(t, ev.Signal)
	assert.Len(t, ev.Exclusions, 2)
}

func TestEvaluate_RequestsBufferButNeverUsesIt(t *testing.T) {
	series := append(growth(10), model.OHLCV{Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Close: 1000})
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": series, "IWDA.L": growth(1), "CNDX.L": growth(1),
		"IB01.L": growth(1), "CBU0.L": growth(1),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)

	assert.Equal(t, eimi, ev.Ranked[0].Instrument)
	assert.InDelta(t, 10.0, ev.Ranked[0].ReturnPct, 1e-9)
	assert.Equal(t, testWindow.End, ev.Ranked[0].EndDate)
	assert.Equal(t, 110.0, ev.Ranked[0].EndPrice)

	require.Len(t, p.calls, len(universe))
	for _, c := range p.calls {
		assert.Equal(t, testWindow.Start, c.start)
		assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), c.end)
	}
}

func TestEvaluate_UnsortedSeriesIsNotMutated(t *testing.T) {
	unsorted := []model.OHLCV{
		{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Close: 120},
		{Date: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), Close: 100},
	}
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": unsorted, "IWDA.L": growth(1), "CNDX.L": growth(1),
		"IB01.L": growth(1), "CBU0.L": growth(1),
	}}
	ev, err := newTestEngine(p).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, ev.Ranked[0].ReturnPct, 1e-9)
	assert.Equal(t, 120.0, unsorted[0].Close, "input series must not be reordered")
}

func TestEvaluate_Idempotent(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(2), "IWDA.L": growth(5), "CNDX.L": growth(9),
		"IB01.L": growth(3), "CBU0.L": growth(-2),
	}}
	e := newTestEngine(p)
	first, err := e.Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)
	assert.Equal(t, first.Ranked, second.Ranked)
	assert.Equal(t, first.Signal, second.Signal)
}

func TestEvaluate_InvalidUniverse(t *testing.T) {
	p := &fakeProvider{}
	_, err := newTestEngine(p).Evaluate(context.Background(), []model.Instrument{eimi, iwda}, testWindow)
	assert.ErrorIs(t, err, ErrInvalidUniverse)
	assert.Empty(t, p.calls)
}

type recordingProgress struct {
	statuses []string
	advances [][2]int
}

func (r *recordingProgress) Status(inst model.Instrument, text string) {
	r.statuses = append(r.statuses, text)
}

func (r *recordingProgress) Advance(completed, total int) {
	r.advances = append(r.advances, [2]int{completed, total})
}

func TestEvaluate_ReportsProgress(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(2), "IWDA.L": growth(5), "CNDX.L": growth(9),
		"IB01.L": growth(3),
	}}
	e := newTestEngine(p)
	rec := &recordingProgress{}
	e.Progress = rec

	_, err := e.Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)

	assert.Len(t, rec.statuses, len(universe))
	assert.Contains(t, rec.statuses, "Fetching data for CBU0 (Bonds 7-10y)...")
	require.Len(t, rec.advances, len(universe))
	for i, a := range rec.advances {
		assert.Equal(t, [2]int{i + 1, len(universe)}, a)
	}
}

func TestEvaluate_SequentialWorker(t *testing.T) {
	p := &fakeProvider{series: map[string][]model.OHLCV{
		"EIMI.L": growth(2), "IWDA.L": growth(5), "CNDX.L": growth(9),
		"IB01.L": growth(3), "CBU0.L": growth(1),
	}}
	ev, err := NewEngine(p, 0).Evaluate(context.Background(), universe, testWindow)
	require.NoError(t, err)
	assert.Equal(t, cndx, ev.Signal.Chosen.Instrument)
	require.Len(t, p.calls, len(universe))
	for i, c := range p.calls {
		assert.Equal(t, universe[i].Symbol, c.symbol, "single worker keeps configuration order")
	}
}
