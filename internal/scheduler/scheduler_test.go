package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"GEMSentinel/internal/collector"
	"GEMSentinel/internal/metrics"
	"GEMSentinel/internal/model"
	"GEMSentinel/internal/strategy"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var instruments = []model.Instrument{
	{Name: "IWDA (World)", Symbol: "IWDA.L", Category: model.RiskAsset},
	{Name: "CNDX (Nasdaq 100)", Symbol: "CNDX.L", Category: model.RiskAsset},
	{Name: "IB01 (Bonds 0-1y)", Symbol: "IB01.L", Category: model.SafeHaven},
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func bars(start, end float64) []model.OHLCV {
	return []model.OHLCV{
		{Date: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), Close: start},
		{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Close: end},
	}
}

func newTestScheduler(t *testing.T, fetcher *collector.MockFetcher, sender Sender) (*Scheduler, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	s := NewScheduler(context.Background(), strategy.NewEngine(fetcher, 2), instruments, sender, m)
	s.Now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return s, m
}

func TestRunSignal(t *testing.T) {
	fetcher := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		"IWDA.L": bars(80, 92), "CNDX.L": bars(100, 105), "IB01.L": bars(100, 104),
	}}
	s, m := newTestScheduler(t, fetcher, nil)

	run, err := s.RunSignal(context.Background(), s.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "2023-02-01 .. 2024-01-31", run.Window.String())
	assert.Equal(t, model.ActionBuyRiskAsset, run.Evaluation.Signal.Action)
	assert.Equal(t, "IWDA.L", run.Evaluation.Signal.Chosen.Instrument.Symbol)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskOn))
	assert.InDelta(t, 15.0, testutil.ToFloat64(m.LeaderReturn), 1e-9)
}

func TestRunSignalNoData(t *testing.T) {
	s, m := newTestScheduler(t, &collector.MockFetcher{}, nil)

	run, err := s.RunSignal(context.Background(), s.Now())
	require.ErrorIs(t, err, strategy.ErrNoDataAvailable)
	require.NotNil(t, run)
	assert.Len(t, run.Evaluation.Exclusions, len(instruments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("no_data_available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exclusions.WithLabelValues("IB01.L", "data_unavailable")))
}

func TestRunSignalInvalidUniverse(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{Price: 100}, nil)
	s.Instruments = instruments[:2]

	run, err := s.RunSignal(context.Background(), s.Now())
	assert.ErrorIs(t, err, strategy.ErrInvalidUniverse)
	assert.Nil(t, run)
}

func TestMonthlyTaskSendsReport(t *testing.T) {
	fetcher := &collector.MockFetcher{Series: map[string][]model.OHLCV{
		"IWDA.L": bars(80, 76), "CNDX.L": bars(100, 95), "IB01.L": bars(100, 101),
	}}
	sender := &fakeSender{}
	s, _ := newTestScheduler(t, fetcher, sender)

	s.RunNow()
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "2024-03-15")
	assert.Contains(t, sender.texts[0], "Flee to safe haven → <b>IB01 (Bonds 0-1y)</b>")
}

func TestMonthlyTaskReportsFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	s, _ := newTestScheduler(t, &collector.MockFetcher{}, sender)

	s.RunNow()
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "could not fetch data for any instrument")
}

func TestMonthlyTaskWithoutNotifier(t *testing.T) {
	s, m := newTestScheduler(t, &collector.MockFetcher{Price: 50}, nil)
	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
}

func TestHandleCommand(t *testing.T) {
	fetcher := &collector.MockFetcher{Price: 100}
	s, _ := newTestScheduler(t, fetcher, nil)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/window"), "<b>2023-02-01</b> to <b>2024-01-31</b>")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/signal")
	assert.Contains(t, s.HandleCommand(ctx, "/start"), "/window")
	assert.Zero(t, fetcher.Calls())

	reply := s.HandleCommand(ctx, "/signal")
	assert.Contains(t, reply, "SIGNAL:")
	assert.Equal(t, int64(len(instruments)), fetcher.Calls())
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{}, nil)
	require.NoError(t, s.RegisterAll("0 0 9 1 * *"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("every month"))
}
