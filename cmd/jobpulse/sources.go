package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/config"
	"github.com/amishk599/jobpulse/internal/model"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all configured sources.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-25s %-20s %-8s %s\n", "Source", "Kind", "Mode", "Status")
	fmt.Fprintln(w, strings.Repeat("─", 64))

	enabled, disabled := 0, 0
	for _, s := range cfg.Sources {
		status := "enabled"
		if !s.IsEnabled() {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Fprintf(w, "%-25s %-20s %-8s %s\n", s.Name, kindLabel(s), modeLabel(s), status)
	}

	fmt.Fprintf(w, "\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Sources), enabled, disabled)
	return nil
}

func kindLabel(s config.SourceConfig) string {
	switch {
	case s.Preset != "" && s.Kind != "":
		return s.Kind + " (" + s.Preset + ")"
	case s.Preset != "":
		return "preset " + s.Preset
	}
	label := s.Kind
	if s.Render {
		label += " (render)"
	}
	return label
}

func modeLabel(s config.SourceConfig) string {
	if s.Mode != "" {
		return s.Mode
	}
	if s.Preset != "" {
		return "preset"
	}
	return string(model.ModeDigest)
}
