package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"GEMSentinel/internal/model"
	"GEMSentinel/internal/notifier"
	"GEMSentinel/internal/scheduler"
	"GEMSentinel/internal/server"
	"GEMSentinel/internal/strategy"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		date   string
		format string
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the signal once and print the ranking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := parseDate(date)
			if err != nil {
				return err
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown --format %q", format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			engine := a.engine()
			if !quiet {
				engine.Progress = &cliProgress{w: cmd.ErrOrStderr()}
			}
			sched := scheduler.NewScheduler(ctx, engine, a.instruments, nil, a.metrics)

			run, runErr := sched.RunSignal(ctx, asOf)
			if run == nil {
				return runErr
			}
			if err := printRun(cmd.OutOrStdout(), format, run, runErr); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	return cmd
}

func printRun(w io.Writer, format string, run *scheduler.Run, runErr error) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(server.NewSignalResponse(run, runErr))
	}
	return notifier.WriteConsoleReport(w, run.AsOf, run.Evaluation, runErr)
}

// cliProgress prints engine progress as plain lines.
type cliProgress struct {
	w io.Writer
}

func (p *cliProgress) Status(_ model.Instrument, text string) {
	fmt.Fprintln(p.w, text)
}

func (p *cliProgress) Advance(completed, total int) {
	fmt.Fprintf(p.w, "[%d/%d]\n", completed, total)
}

var _ strategy.Progress = (*cliProgress)(nil)
