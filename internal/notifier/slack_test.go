package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/amishk599/jobpulse/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listingAlert(title, source string) model.Alert {
	l := &model.Listing{ID: "123", Title: title, Location: "Remote, US"}
	return model.Alert{Source: source, Title: title, URL: "https://example.com/apply", Listing: l}
}

func digestAlert(source string) model.Alert {
	return model.Alert{
		Source:  source,
		Title:   "AMAZON JOBS UPDATE",
		Summary: "New roles detected.",
		Lines:   []string{"SDE I", "SDE Intern"},
		URL:     "https://www.amazon.jobs/en/teams/internships-for-students",
	}
}

func newTestSlack(url string, client *http.Client) *SlackNotifier {
	n := NewSlackNotifier(url, client, discardLogger())
	n.interval = 0
	return n
}

func TestSlackNotifier_EmptyAlerts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())

	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify(context.Background(), []model.Alert{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_ListingAlert(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), []model.Alert{listingAlert("Backend Engineer", "Acme")}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "🚀 Acme: Backend Engineer" {
		t.Errorf("header text = %q, want source: title", got)
	}
	if got := payload.Blocks[1].Fields[1].Text; got != "*Location:*\nRemote, US" {
		t.Errorf("location field = %q", got)
	}
	button := payload.Blocks[2].Elements[0]
	if button.URL != "https://example.com/apply" || button.Text.Text != "Apply Now" {
		t.Errorf("button = %+v", button)
	}
	if payload.Blocks[3].Type != "divider" {
		t.Errorf("block[3] type = %q, want divider", payload.Blocks[3].Type)
	}
}

func TestSlackNotifier_DigestAlert(t *testing.T) {
	payload := buildPayload(digestAlert("amazon"))

	if len(payload.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "🚨 AMAZON JOBS UPDATE" {
		t.Errorf("header = %q", got)
	}
	if got := payload.Blocks[1].Text.Text; got != "New roles detected.\n• SDE I\n• SDE Intern" {
		t.Errorf("section = %q", got)
	}
	if got := payload.Blocks[2].Elements[0].Text.Text; got != "Check Openings" {
		t.Errorf("button label = %q", got)
	}
}

func TestSlackNotifier_MultipleAlerts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	alerts := []model.Alert{
		listingAlert("Engineer 1", "A"),
		listingAlert("Engineer 2", "B"),
		digestAlert("C"),
	}

	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	alerts := []model.Alert{
		listingAlert("A", "X"),
		listingAlert("B", "Y"),
		listingAlert("C", "Z"),
	}

	if err := n.Notify(context.Background(), alerts); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	alerts := []model.Alert{
		listingAlert("Fails", "A"),
		listingAlert("Succeeds", "B"),
	}

	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), []model.Alert{listingAlert("Rate Limited Job", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSlackNotifier_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, []model.Alert{listingAlert("A", "X"), listingAlert("B", "Y")})
	if err == nil {
		t.Error("expected error for canceled context, got nil")
	}
}
