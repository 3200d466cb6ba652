package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/model"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset persisted source state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored signal of every source",
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <source>",
	Short: "Forget a source's state",
	Long:  "Deletes the stored signal of one source. The next poll is treated as a first run and sends nothing. Required after changing a source's mode.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateReset,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateResetCmd)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(cmd, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	records, err := st.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list state: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(w, "No state stored (%s backend).\n", cfg.State.Backend)
		return nil
	}

	fmt.Fprintf(w, "%-25s %-7s %-20s %s\n", "Source", "Mode", "Signal", "Updated")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, r := range records {
		updated := "unknown"
		if !r.UpdatedAt.IsZero() {
			updated = humanize.Time(r.UpdatedAt)
		}
		fmt.Fprintf(w, "%-25s %-7s %-20s %s\n", r.Source, r.Signal.Mode, signalLabel(r.Signal), updated)
	}
	fmt.Fprintf(w, "\nTotal: %d sources\n", len(records))
	return nil
}

func signalLabel(sig model.Signal) string {
	if sig.Mode == model.ModeSet {
		return humanize.Comma(int64(len(sig.IDs))) + " ids"
	}
	if len(sig.Digest) > 16 {
		return sig.Digest[:16] + "…"
	}
	return sig.Digest
}

func runStateReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(cmd, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("reset %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "State for %s cleared; the next poll is a first run.\n", args[0])
	return nil
}
