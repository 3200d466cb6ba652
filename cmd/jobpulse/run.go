package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/poller"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll every enabled source once, then exit",
	Long:  "Polls every enabled source once, sends alerts for changed sources and saves state. Per-source failures are logged and do not change the exit code.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cmd, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	logger = logger.With("run_id", uuid.NewString())
	p := newPipeline(cfg, logger)
	pollers := p.buildPollers(st, setupNotifier(cfg, p.client, logger))
	if len(pollers) == 0 {
		logger.Error("no sources to poll")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller.Run(ctx, pollers, cfg.Concurrency, logger)
	return nil
}
