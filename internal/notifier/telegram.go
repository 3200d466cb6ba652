package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/jobpulse/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

const (
	// DefaultTelegramAPI is the Bot API root.
	DefaultTelegramAPI = "https://api.telegram.org"

	// maxLineRunes keeps a message well under the 4096 character sendMessage
	// limit without cutting through markup.
	maxLineRunes = 200
)

// TelegramNotifier sends alerts to one chat through the Bot API sendMessage
// method, formatted as HTML.
type TelegramNotifier struct {
	apiBase    string
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger
	interval   time.Duration
}

// NewTelegramNotifier returns a notifier for chatID. apiBase defaults to
// DefaultTelegramAPI.
func NewTelegramNotifier(apiBase, botToken, chatID string, httpClient *http.Client, logger *slog.Logger) *TelegramNotifier {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramNotifier{
		apiBase:    strings.TrimRight(apiBase, "/"),
		botToken:   botToken,
		chatID:     chatID,
		httpClient: httpClient,
		logger:     logger,
		interval:   messageInterval,
	}
}

type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Notify sends each alert as a separate message.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (t *TelegramNotifier) Notify(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	failures := 0
	for i, a := range alerts {
		if i > 0 {
			if err := sleep(ctx, t.interval); err != nil {
				return err
			}
		}
		if err := t.send(ctx, FormatHTML(a)); err != nil {
			t.logger.Error("telegram notification failed", "source", a.Source, "title", a.Title, "error", err)
			failures++
			continue
		}
		t.logger.Info("telegram message sent", "source", a.Source, "title", a.Title)
	}

	if failures == len(alerts) {
		return fmt.Errorf("all %d telegram notifications failed", failures)
	}
	t.logger.Info("telegram notifications complete", "sent", len(alerts)-failures, "failed", failures)
	return nil
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	status, resp, err := t.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		wait := time.Duration(resp.Parameters.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		t.logger.Warn("telegram rate limited, retrying", "retry_after", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		if status, resp, err = t.post(ctx, body); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK || !resp.OK {
		return fmt.Errorf("telegram returned %d: %s", status, resp.Description)
	}
	return nil
}

func (t *TelegramNotifier) post(ctx context.Context, body []byte) (int, telegramResponse, error) {
	var out telegramResponse
	endpoint := t.apiBase + "/bot" + t.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, out, fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return 0, out, fmt.Errorf("post to telegram: %w", redactToken(err, t.botToken))
	}
	defer resp.Body.Close()

	// Error bodies still carry description and retry_after.
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out, nil
}

// FormatHTML renders an alert in Telegram's HTML subset.
func FormatHTML(a model.Alert) string {
	var b strings.Builder
	if a.Listing != nil {
		fmt.Fprintf(&b, "<b>%s</b>\n%s", html.EscapeString(a.Source), html.EscapeString(truncate(a.Listing.Title, maxLineRunes)))
		if loc := a.Listing.Location; loc != "" {
			fmt.Fprintf(&b, "\n📍 %s", html.EscapeString(loc))
		}
		if a.URL != "" {
			fmt.Fprintf(&b, "\n<a href=\"%s\">Apply Here</a>", html.EscapeString(a.URL))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "🚨 <b>%s</b>", html.EscapeString(a.Title))
	if a.Summary != "" {
		fmt.Fprintf(&b, "\n\n%s", html.EscapeString(a.Summary))
	}
	if len(a.Lines) > 0 {
		b.WriteString("\n")
		for _, l := range a.Lines {
			fmt.Fprintf(&b, "\n• %s", html.EscapeString(truncate(l, maxLineRunes)))
		}
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "\n\n<a href=\"%s\">Click here to check</a>", html.EscapeString(a.URL))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
