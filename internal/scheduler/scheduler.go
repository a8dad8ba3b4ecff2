package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GEMSentinel/internal/calculator"
	"GEMSentinel/internal/metrics"
	"GEMSentinel/internal/model"
	"GEMSentinel/internal/notifier"
	"GEMSentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Evaluator runs the momentum engine. *strategy.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, instruments []model.Instrument, window model.Window) (*strategy.Evaluation, error)
}

// Sender delivers reports. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Run is one evaluation of the signal for a reference date.
type Run struct {
	ID         string
	AsOf       time.Time
	Window     model.Window
	Evaluation *strategy.Evaluation
}

// Scheduler manages the monthly signal task and on-demand runs.
type Scheduler struct {
	Cron        *cron.Cron
	Engine      Evaluator
	Instruments []model.Instrument
	Notifier    Sender // nil disables notifications
	Metrics     *metrics.Metrics
	Ctx         context.Context
	Now         func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, engine Evaluator, instruments []model.Instrument, sender Sender, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		Engine:      engine,
		Instruments: instruments,
		Notifier:    sender,
		Metrics:     m,
		Ctx:         ctx,
		Now:         time.Now,
	}
}

// RegisterAll registers the monthly signal task.
func (s *Scheduler) RegisterAll(monthlyCron string) error {
	if _, err := s.Cron.AddFunc(monthlyCron, s.monthlyTask); err != nil {
		return fmt.Errorf("register monthly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the monthly task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.monthlyTask()
}

// RunSignal evaluates the signal for the window derived from asOf.
// The returned Run is non-nil whenever the engine was invoked, including on run-level errors.
func (s *Scheduler) RunSignal(ctx context.Context, asOf time.Time) (*Run, error) {
	run := &Run{
		ID:     uuid.New().String(),
		AsOf:   asOf,
		Window: calculator.ComputeWindow(asOf),
	}
	logger := log.With().Str("run_id", run.ID).Str("window", run.Window.String()).Logger()
	logger.Info().Int("instruments", len(s.Instruments)).Msg("evaluating GEM signal")

	began := time.Now()
	ev, err := s.Engine.Evaluate(ctx, s.Instruments, run.Window)
	run.Evaluation = ev
	s.Metrics.ObserveEvaluation(ev, err)

	if err != nil {
		logger.Error().Err(err).Str("reason", strategy.ReasonCode(err)).Msg("signal run failed")
		if errors.Is(err, strategy.ErrInvalidUniverse) {
			return nil, err
		}
		return run, err
	}

	logger.Info().
		Str("action", string(ev.Signal.Action)).
		Str("leader", ev.Signal.Leader.Instrument.Symbol).
		Str("chosen", ev.Signal.Chosen.Instrument.Symbol).
		Float64("leader_return_pct", ev.Signal.Leader.ReturnPct).
		Int("excluded", len(ev.Exclusions)).
		Dur("took", time.Since(began)).
		Msg("signal run complete")
	return run, nil
}

func (s *Scheduler) monthlyTask() {
	log.Info().Msg("running monthly signal task")
	asOf := s.Now()
	run, err := s.RunSignal(s.Ctx, asOf)
	s.trySend(report(asOf, run, err))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/signal":
		asOf := s.Now()
		run, err := s.RunSignal(ctx, asOf)
		return report(asOf, run, err)
	case "/window":
		asOf := s.Now()
		return notifier.FormatWindow(asOf, calculator.ComputeWindow(asOf))
	default:
		return notifier.HelpText()
	}
}

func report(asOf time.Time, run *Run, err error) string {
	var ev *strategy.Evaluation
	if run != nil {
		ev = run.Evaluation
	}
	return notifier.FormatTelegramReport(asOf, ev, err)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Debug().Msg("notifications disabled, report not sent")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification failed")
	}
}
