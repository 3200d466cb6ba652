package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/poller"
	"github.com/amishk599/jobpulse/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll on a schedule until interrupted",
	Long:  "Runs a poll cycle immediately and then on the configured schedule (or polling_interval); blocks until SIGINT/SIGTERM.",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"interval", cfg.PollingInterval.String(),
		"sources", len(cfg.EnabledSources()),
		"state", cfg.State.Backend,
		"notifier", cfg.Notification.Type,
	)

	st, err := openStore(cmd, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	p := newPipeline(cfg, logger)
	pollers := p.buildPollers(st, setupNotifier(cfg, p.client, logger))
	if len(pollers) == 0 {
		logger.Error("no sources to poll")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cycles atomic.Int64
	sched := scheduler.NewScheduler(pollers, cfg.Schedule, cfg.PollingInterval, cfg.Concurrency, logger)
	sched.OnCycle = func([]poller.Report) { cycles.Add(1) }
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye", "cycles", cycles.Load())
	return nil
}
