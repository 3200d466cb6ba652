// Package poller runs the per-source pipeline: fetch, extract, filter,
// fingerprint, detect and notify.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobpulse/internal/detector"
	"github.com/amishk599/jobpulse/internal/filter"
	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// ErrPollInFlight is returned when a source is polled while a previous poll of
// the same source has not finished.
var ErrPollInFlight = errors.New("poll already in flight")

// DefaultSummary leads digest alerts when the source does not set one.
const DefaultSummary = "New roles detected."

// Config describes one source to the poller.
type Config struct {
	Name         string
	Mode         model.Mode
	TopK         int
	AlertTitle   string // defaults to "<NAME> JOBS UPDATE"
	AlertSummary string
	Link         string // page digest alerts point at; fallback for listings without a URL
}

// Report summarizes one poll.
type Report struct {
	Source   string
	Outcome  detector.Outcome
	Strategy string
	Fetched  int             // listings extracted
	Listings []model.Listing // listings that passed the filter, in source order
	TopK     int             // digest snapshot size used for this source
	Signal   model.Signal
	NewIDs   []string
	Alerts   int
	Duration time.Duration
	Err      error
}

// SourcePoller owns the full poll pipeline for a single source.
// Only one poll per source runs at a time.
type SourcePoller struct {
	cfg       Config
	fetcher   model.Fetcher
	extractor model.Extractor
	filter    model.ListingFilter
	detector  *detector.Detector
	notifier  model.Notifier
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewSourcePoller creates a poller wired with all its dependencies. filter
// may be nil.
func NewSourcePoller(
	cfg Config,
	fetcher model.Fetcher,
	extractor model.Extractor,
	filter model.ListingFilter,
	det *detector.Detector,
	notifier model.Notifier,
	logger *slog.Logger,
) *SourcePoller {
	if cfg.TopK <= 0 {
		cfg.TopK = fingerprint.DefaultTopK
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModeDigest
	}
	if cfg.AlertTitle == "" {
		cfg.AlertTitle = strings.ToUpper(cfg.Name) + " JOBS UPDATE"
	}
	if cfg.AlertSummary == "" {
		cfg.AlertSummary = DefaultSummary
	}
	return &SourcePoller{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		filter:    filter,
		detector:  det,
		notifier:  notifier,
		logger:    logger.With("source", cfg.Name),
	}
}

// Name returns the source name.
func (p *SourcePoller) Name() string { return p.cfg.Name }

// Poll runs one poll cycle. Any error before detection leaves state untouched
// and sends nothing. Notification failures are logged, not returned; the
// state write they follow stands.
func (p *SourcePoller) Poll(ctx context.Context) (Report, error) {
	rep := Report{Source: p.cfg.Name, TopK: p.cfg.TopK}
	if !p.mu.TryLock() {
		rep.Err = ErrPollInFlight
		return rep, rep.Err
	}
	defer p.mu.Unlock()

	start := time.Now()

	fail := func(stage string, err error) (Report, error) {
		rep.Err = fmt.Errorf("polling %s: %s: %w", p.cfg.Name, stage, err)
		rep.Duration = time.Since(start)
		return rep, rep.Err
	}

	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fail("fetch", err)
	}

	ext, err := p.extractor.Extract(raw)
	if err != nil {
		return fail("extract", err)
	}
	rep.Strategy = ext.Strategy
	rep.Fetched = len(ext.Listings)

	ext.Listings = filter.Apply(p.filter, ext.Listings)
	rep.Listings = ext.Listings

	sig, err := fingerprint.FromExtraction(ext, p.cfg.Mode, p.cfg.TopK)
	if err != nil {
		return fail("fingerprint", err)
	}
	rep.Signal = sig

	res, err := p.detector.Observe(ctx, p.cfg.Name, sig)
	if err != nil {
		return fail("detect", err)
	}
	rep.Outcome = res.Outcome
	rep.NewIDs = res.NewIDs

	if res.Outcome == detector.Changed {
		alerts := p.alerts(ext, res)
		rep.Alerts = len(alerts)
		if err := p.notifier.Notify(ctx, alerts); err != nil {
			p.logger.Error("notification failed", "alerts", len(alerts), "error", err)
		}
	}

	p.logger.Info("polled source",
		"outcome", res.Outcome,
		"strategy", ext.Strategy,
		"fetched", rep.Fetched,
		"matched", len(ext.Listings),
		"signal", sig,
		"new", len(res.NewIDs),
	)
	rep.Duration = time.Since(start)
	return rep, nil
}

// alerts builds the outbound messages for a Changed result: one summary for
// digest mode, one per new identifier for set mode.
func (p *SourcePoller) alerts(ext model.Extraction, res detector.Result) []model.Alert {
	if p.cfg.Mode == model.ModeDigest {
		a := model.Alert{
			Source:  p.cfg.Name,
			Title:   p.cfg.AlertTitle,
			Summary: p.cfg.AlertSummary,
			URL:     p.cfg.Link,
		}
		for _, l := range fingerprint.Snapshot(ext.Listings, p.cfg.TopK) {
			a.Lines = append(a.Lines, l.Title)
		}
		if len(ext.Listings) == 0 && ext.Blob == "" {
			a.Summary = "No open roles listed right now."
		}
		return []model.Alert{a}
	}

	fresh := make(map[string]bool, len(res.NewIDs))
	for _, id := range res.NewIDs {
		fresh[id] = true
	}
	var out []model.Alert
	for _, l := range ext.Listings {
		key := fingerprint.Key(l)
		if !fresh[key] {
			continue
		}
		delete(fresh, key)
		url := l.URL
		if url == "" {
			url = p.cfg.Link
		}
		out = append(out, model.Alert{Source: p.cfg.Name, Title: l.Title, URL: url, Listing: &l})
	}
	return out
}
