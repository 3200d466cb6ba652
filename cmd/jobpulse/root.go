package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobpulse/internal/config"
	"github.com/amishk599/jobpulse/internal/detector"
	"github.com/amishk599/jobpulse/internal/filter"
	"github.com/amishk599/jobpulse/internal/model"
	"github.com/amishk599/jobpulse/internal/notifier"
	"github.com/amishk599/jobpulse/internal/poller"
	"github.com/amishk599/jobpulse/internal/ratelimit"
	"github.com/amishk599/jobpulse/internal/retry"
	"github.com/amishk599/jobpulse/internal/source"
	"github.com/amishk599/jobpulse/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobpulse",
	Short: "Job board change detector",
	Long:  "jobpulse polls career pages and job APIs and alerts you when a source's listings change.",
	// Default to `run` so that `jobpulse` with no args polls once, which is
	// what a cron entry expects.
	RunE:          runOnce,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: "+config.EnvConfigPath+" env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(cmd *cobra.Command, cfg *config.Config) (store.Store, error) {
	return store.Open(cmd.Context(), store.Options{
		Backend: cfg.State.Backend,
		Dir:     cfg.State.Dir,
		Path:    cfg.State.Path,
		DSN:     cfg.State.DSN,
	})
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	n := cfg.Notification
	switch n.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(n.WebhookURL, httpClient, logger)
	case "log":
		return notifier.NewLogNotifier(logger)
	default:
		if !n.HasTelegramSecrets() {
			logger.Warn("BOT_TOKEN or CHAT_ID not set, alerts will only be logged")
			return notifier.NewLogNotifier(logger)
		}
		logger.Info("using telegram notifier")
		return notifier.NewTelegramNotifier(n.APIBaseURL, n.BotToken, n.ChatID, httpClient, logger)
	}
}

// buildFilter returns nil when the source has no filter keywords.
func buildFilter(cfg *config.Config, sc config.SourceConfig) model.ListingFilter {
	fc := cfg.EffectiveFilters(sc)
	if fc.IsZero() {
		return nil
	}
	return filter.NewKeywordFilter(fc.TitleKeywords, fc.TitleExcludeKeywords, fc.Locations)
}

// pipeline is the shared wiring every command builds sources from.
type pipeline struct {
	cfg     *config.Config
	client  *http.Client
	limiter *ratelimit.HostLimiter
	logger  *slog.Logger
}

func newPipeline(cfg *config.Config, logger *slog.Logger) *pipeline {
	return &pipeline{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTP.Timeout},
		limiter: ratelimit.NewHostLimiter(cfg.HTTP.MinDelay),
		logger:  logger,
	}
}

// buildSource resolves sc and wraps its fetcher with per-host rate limiting
// and, when configured, retries.
func (p *pipeline) buildSource(sc config.SourceConfig) (*source.Source, error) {
	src, err := source.Build(sc.Spec(p.cfg.HTTP.Timeout), p.client)
	if err != nil {
		return nil, err
	}
	var f model.Fetcher = ratelimit.NewFetcher(src.Fetcher, p.limiter, src.URL)
	if p.cfg.HTTP.Retries > 0 {
		f = retry.New(f, p.cfg.HTTP.Retries, p.cfg.HTTP.RetryBaseDelay, p.logger.With("source", src.Name))
	}
	src.Fetcher = f
	return src, nil
}

func (p *pipeline) pollerConfig(sc config.SourceConfig, src *source.Source) poller.Config {
	topK := sc.TopK
	if topK == 0 {
		topK = p.cfg.TopK
	}
	link := sc.CheckURL
	if link == "" {
		link = src.Link
	}
	return poller.Config{
		Name:         src.Name,
		Mode:         src.Mode,
		TopK:         topK,
		AlertTitle:   sc.AlertTitle,
		AlertSummary: sc.AlertSummary,
		Link:         link,
	}
}

// buildPollers wires one poller per enabled source. A source that fails to
// build is logged and skipped.
func (p *pipeline) buildPollers(st model.StateStore, n model.Notifier) []*poller.SourcePoller {
	det := detector.New(st)

	var pollers []*poller.SourcePoller
	for _, sc := range p.cfg.EnabledSources() {
		src, err := p.buildSource(sc)
		if err != nil {
			p.logger.Error("skipping source", "source", sc.Name, "error", err)
			continue
		}
		sp := poller.NewSourcePoller(p.pollerConfig(sc, src), src.Fetcher, src.Extractor, buildFilter(p.cfg, sc), det, n, p.logger)
		pollers = append(pollers, sp)
		p.logger.Debug("registered source", "source", src.Name, "kind", src.Kind, "mode", src.Mode)
	}
	return pollers
}
