package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobpulse/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes alerts to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each alert via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each alert. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, alerts []model.Alert) error {
	for _, a := range alerts {
		if l := a.Listing; l != nil {
			n.logger.Info("new listing", "source", a.Source, "title", l.Title, "id", l.ID, "location", l.Location, "url", a.URL)
			continue
		}
		n.logger.Info("source changed", "source", a.Source, "title", a.Title, "top", a.Lines, "url", a.URL)
	}
	return nil
}
