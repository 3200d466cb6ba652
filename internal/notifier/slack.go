package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	interval   time.Duration
}

// NewSlackNotifier returns a notifier that posts each alert to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		interval:   messageInterval,
	}
}

// Notify sends each alert as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	failures := 0
	for i, a := range alerts {
		if i > 0 {
			if err := sleep(ctx, s.interval); err != nil {
				return err
			}
		}

		if err := s.sendMessage(ctx, a); err != nil {
			s.logger.Error("slack notification failed", "source", a.Source, "title", a.Title, "error", err)
			failures++
		}
	}

	sent := len(alerts) - failures
	if failures == len(alerts) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, a model.Alert) error {
	body, err := json.Marshal(buildPayload(a))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		if err := sleep(ctx, time.Duration(secs)*time.Second); err != nil {
			return err
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "source", a.Source, "title", a.Title, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "source", a.Source, "title", a.Title)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func buildPayload(a model.Alert) slackPayload {
	var blocks []slackBlock

	if l := a.Listing; l != nil {
		location := l.Location
		if location == "" {
			location = "Not listed"
		}
		blocks = append(blocks,
			slackBlock{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "🚀 " + a.Source + ": " + l.Title},
			},
			slackBlock{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Source:*\n" + a.Source},
					{Type: "mrkdwn", Text: "*Location:*\n" + location},
				},
			},
		)
	} else {
		blocks = append(blocks, slackBlock{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚨 " + a.Title},
		})
		var text strings.Builder
		text.WriteString(a.Summary)
		for _, line := range a.Lines {
			text.WriteString("\n• " + line)
		}
		if text.Len() > 0 {
			blocks = append(blocks, slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: strings.TrimPrefix(text.String(), "\n")},
			})
		}
	}

	if a.URL != "" {
		label := "Check Openings"
		if a.Listing != nil {
			label = "Apply Now"
		}
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: label},
					URL:   a.URL,
					Style: "primary",
				},
			},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Blocks: blocks}
}
