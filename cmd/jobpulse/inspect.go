package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/config"
	"github.com/amishk599/jobpulse/internal/filter"
	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/inspect"
	"github.com/amishk599/jobpulse/internal/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse a source's current snapshot interactively (TUI)",
	Long:  "Shows the source picker, polls the chosen source without writing state, then opens the split-pane view of extracted and matched listings.",
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Log output before the alt-screen starts corrupts the display.
	p := newPipeline(cfg, discardLogger())

	st, err := openStore(cmd, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sources := cfg.EnabledSources()
	if len(sources) == 0 {
		fmt.Println("No enabled sources in config.")
		return nil
	}
	choices := make([]inspect.Choice, len(sources))
	for i, s := range sources {
		choices[i] = inspect.Choice{Name: s.Name, Kind: kindLabel(s), Mode: modeLabel(s)}
	}

	for {
		choice, err := inspect.RunPicker(choices)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		sc := sources[choice]

		snap, err := inspect.RunLoader(cmd.Context(), sc.Name, snapshotLoader(p, st, sc))
		if err != nil {
			fmt.Printf("Error polling %s: %v\n", sc.Name, err)
			continue
		}
		if err := inspect.Run(snap); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}
}

// snapshotLoader runs the poll pipeline up to the fingerprint and reads, but
// never writes, the stored signal.
func snapshotLoader(p *pipeline, st model.StateStore, sc config.SourceConfig) inspect.Loader {
	return func(ctx context.Context) (inspect.Snapshot, error) {
		src, err := p.buildSource(sc)
		if err != nil {
			return inspect.Snapshot{}, err
		}
		pc := p.pollerConfig(sc, src)

		raw, err := src.Fetcher.Fetch(ctx)
		if err != nil {
			return inspect.Snapshot{}, fmt.Errorf("fetch: %w", err)
		}
		ext, err := src.Extractor.Extract(raw)
		if err != nil {
			return inspect.Snapshot{}, fmt.Errorf("extract: %w", err)
		}

		snap := inspect.Snapshot{
			Source:   src.Name,
			Mode:     src.Mode,
			Strategy: ext.Strategy,
			Empty:    ext.Empty,
			Blob:     ext.Blob != "" && len(ext.Listings) == 0,
			All:      ext.Listings,
			TopK:     pc.TopK,
		}

		ext.Listings = filter.Apply(buildFilter(p.cfg, sc), ext.Listings)
		snap.Matched = ext.Listings

		if snap.Signal, err = fingerprint.FromExtraction(ext, src.Mode, pc.TopK); err != nil {
			return inspect.Snapshot{}, fmt.Errorf("fingerprint: %w", err)
		}
		if snap.Stored, snap.HasState, err = st.Get(ctx, src.Name); err != nil {
			return inspect.Snapshot{}, fmt.Errorf("read state: %w", err)
		}
		return snap, nil
	}
}
