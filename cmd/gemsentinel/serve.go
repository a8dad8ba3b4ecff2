package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GEMSentinel/internal/notifier"
	"GEMSentinel/internal/scheduler"
	"GEMSentinel/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monthly scheduler, Telegram bot and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Getenv("RUN_ON_START") == "true" {
				runOnStart = true
			}
			return serve(cmd.Context(), opts, runOnStart)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Evaluate and report immediately after start")
	return cmd
}

func serve(parent context.Context, opts *globalOptions, runOnStart bool) error {
	cfg := opts.cfg
	log.Info().Msg("GEMSentinel starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		sender scheduler.Sender
		tn     *notifier.TelegramNotifier
	)
	if cfg.Telegram.Enabled {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			return err
		}
		sender = tn
	} else {
		log.Warn().Msg("telegram disabled, reports are only logged")
	}

	sched := scheduler.NewScheduler(ctx, a.engine(), a.instruments, sender, a.metrics)
	if err := sched.RegisterAll(cfg.Schedule.MonthlyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	srv := server.New(cfg.HTTP.ListenAddr, sched, a.registry, 2*time.Minute)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	if runOnStart {
		log.Info().Msg("run on start enabled, executing monthly task now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.MonthlyCron).Msg("GEMSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping...")
	case err := <-srvErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	log.Info().Msg("GEMSentinel stopped")
	return nil
}
