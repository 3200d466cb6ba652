package poller

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobpulse/internal/detector"
	"github.com/amishk599/jobpulse/internal/model"
)

// Run polls every source once and returns one report per poller, in input
// order. concurrency <= 1 polls sequentially. A failing source is logged with
// its error kind and never affects the others.
func Run(ctx context.Context, pollers []*SourcePoller, concurrency int, logger *slog.Logger) []Report {
	reports := make([]Report, len(pollers))
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, p := range pollers {
		g.Go(func() error {
			rep, err := p.Poll(ctx)
			reports[i] = rep
			if err != nil {
				logFailure(logger, p.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed, changed int
	for _, r := range reports {
		switch {
		case r.Err != nil:
			failed++
		case r.Outcome == detector.Changed:
			changed++
		}
	}
	logger.Info("poll cycle complete", "sources", len(pollers), "changed", changed, "failed", failed)
	return reports
}

func logFailure(logger *slog.Logger, source string, err error) {
	kind := model.ErrorKind(err)
	switch {
	case errors.Is(err, ErrPollInFlight):
		logger.Warn("skipping source, previous poll still running", "source", source)
	case errors.Is(err, model.ErrStateLocked):
		logger.Warn("skipping source, state locked by another process", "source", source)
	case kind == "ambiguous" || kind == "canceled":
		logger.Warn("poll skipped", "source", source, "kind", kind, "error", err)
	default:
		logger.Error("poll failed", "source", source, "kind", kind, "error", err)
	}
}
