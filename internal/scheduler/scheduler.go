// Package scheduler runs poll cycles on a cron schedule or fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/amishk599/jobpulse/internal/poller"
)

// Scheduler owns the watch loop: every tick runs one poll cycle over all
// sources. A tick that arrives while the previous cycle is still running is
// skipped.
type Scheduler struct {
	pollers     []*poller.SourcePoller
	cron        string
	interval    time.Duration
	concurrency int
	logger      *slog.Logger

	// OnCycle, when set, receives the reports of every finished cycle.
	OnCycle func([]poller.Report)
}

// NewScheduler creates a scheduler. cron, when non-empty, takes precedence
// over interval.
func NewScheduler(pollers []*poller.SourcePoller, cron string, interval time.Duration, concurrency int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers:     pollers,
		cron:        cron,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *Scheduler) definition() (gocron.JobDefinition, string, error) {
	if s.cron != "" {
		return gocron.CronJob(s.cron, false), "cron " + s.cron, nil
	}
	if s.interval <= 0 {
		return nil, "", errors.New("scheduler needs a cron schedule or a positive interval")
	}
	return gocron.DurationJob(s.interval), "every " + s.interval.String(), nil
}

// Run runs one cycle immediately, then one per tick. It returns nil when ctx
// is cancelled (graceful shutdown), after the running cycle finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	def, desc, err := s.definition()
	if err != nil {
		return err
	}

	gs, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = gs.NewJob(
		def,
		gocron.NewTask(func() { s.cycle(ctx) }),
		gocron.WithName("poll-all"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		gs.Shutdown()
		return fmt.Errorf("schedule poll cycle: %w", err)
	}

	s.logger.Info("starting scheduler", "schedule", desc, "sources", len(s.pollers), "concurrency", s.concurrency)
	gs.Start()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	if err := gs.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}

// cycle polls every source once under a fresh run_id.
func (s *Scheduler) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	logger := s.logger.With("run_id", uuid.NewString())
	reports := poller.Run(ctx, s.pollers, s.concurrency, logger)
	if s.OnCycle != nil {
		s.OnCycle(reports)
	}
}
