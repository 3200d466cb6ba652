package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
	"github.com/amishk599/jobpulse/internal/notifier"
	"github.com/amishk599/jobpulse/internal/poller"
	"github.com/amishk599/jobpulse/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check [source...]",
	Short: "Poll once, print listings and signals, exit",
	Long:  "Dry run: polls the given sources (default: all enabled), prints what was extracted and the resulting signal. Never writes state and never notifies.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: state will not be written and nothing will be sent")

	p := newPipeline(cfg, logger)
	pollers := p.buildPollers(store.NewNopStore(), notifier.NewLogNotifier(logger))
	pollers = selectPollers(pollers, args)
	if len(pollers) == 0 {
		logger.Error("no sources to poll")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports := poller.Run(ctx, pollers, cfg.Concurrency, logger)
	for _, r := range reports {
		printReport(cmd.OutOrStdout(), r)
	}
	return nil
}

// selectPollers keeps the pollers named in names, or all of them when names
// is empty.
func selectPollers(pollers []*poller.SourcePoller, names []string) []*poller.SourcePoller {
	if len(names) == 0 {
		return pollers
	}
	var out []*poller.SourcePoller
	for _, p := range pollers {
		if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, p.Name()) }) {
			out = append(out, p)
		}
	}
	return out
}

func printReport(w io.Writer, r poller.Report) {
	fmt.Fprintf(w, "\n%s\n", r.Source)
	fmt.Fprintln(w, strings.Repeat("─", max(len(r.Source), 20)))
	if r.Err != nil {
		fmt.Fprintf(w, "  error (%s): %v\n", model.ErrorKind(r.Err), r.Err)
		return
	}

	strategy := r.Strategy
	if strategy == "" {
		strategy = "-"
	}
	fmt.Fprintf(w, "  strategy %s | %d extracted | %d matched | %s\n", strategy, r.Fetched, len(r.Listings), r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  signal   %s %s\n", r.Signal.Mode, r.Signal)

	top := len(fingerprint.Snapshot(r.Listings, r.TopK))
	for i, l := range r.Listings {
		mark := " "
		if r.Signal.Mode == model.ModeDigest && i < top {
			mark = "*"
		}
		line := fmt.Sprintf("  %s %3d. %s", mark, i+1, l.Title)
		if l.Location != "" {
			line += " · " + l.Location
		}
		if l.ID != "" {
			line += " [" + l.ID + "]"
		}
		fmt.Fprintln(w, line)
	}
	if len(r.Listings) == 0 {
		fmt.Fprintln(w, "  (no listings)")
	}
}
