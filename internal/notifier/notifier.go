// Package notifier delivers change alerts to Telegram, Slack or the log.
package notifier

import (
	"context"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
)

// messageInterval spaces consecutive messages to stay under chat rate limits.
const messageInterval = 500 * time.Millisecond

// SendTestMessage sends a sample alert to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	return n.Notify(ctx, []model.Alert{{
		Source:  "jobpulse",
		Title:   "JOBPULSE TEST",
		Summary: "Integration verified. Alerts for changed sources will arrive here.",
		Lines:   []string{"Software Engineer, New Grad", "Data Engineer I"},
		URL:     "https://github.com/amishk599/jobpulse",
	}})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
