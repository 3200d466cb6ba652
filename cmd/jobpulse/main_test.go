package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobpulse/internal/config"
	"github.com/amishk599/jobpulse/internal/detector"
	"github.com/amishk599/jobpulse/internal/model"
	"github.com/amishk599/jobpulse/internal/notifier"
	"github.com/amishk599/jobpulse/internal/poller"
	"github.com/amishk599/jobpulse/internal/retry"
	"github.com/amishk599/jobpulse/internal/source"
	"github.com/amishk599/jobpulse/internal/store"
)

const jobsJSON = `{"jobs":[
	{"id":"1","title":"Backend Engineer","location":"Remote"},
	{"id":"2","title":"Product Designer","location":"NYC"},
	{"id":"3","title":"Platform Engineer","location":"Remote"}
]}`

func jobsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(jobsJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) *config.Config {
	return &config.Config{
		TopK:        5,
		Concurrency: 1,
		HTTP:        config.HTTPConfig{Timeout: 5 * time.Second},
		Filters:     config.FilterConfig{TitleKeywords: []string{"engineer"}},
		Sources: []config.SourceConfig{{
			Name:     "acme",
			Kind:     "json",
			URL:      url,
			Mode:     "set",
			ListPath: "$.jobs",
			Fields:   source.FieldMap{Title: "title", ID: "id", Location: "location"},
			CheckURL: "https://acme.example.com/careers",
		}},
	}
}

type recordingNotifier struct {
	alerts []model.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, alerts []model.Alert) error {
	r.alerts = append(r.alerts, alerts...)
	return nil
}

func TestBuildPollers_EndToEnd(t *testing.T) {
	srv := jobsServer(t)
	cfg := testConfig(srv.URL)

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	n := &recordingNotifier{}
	p := newPipeline(cfg, discardLogger())
	pollers := p.buildPollers(st, n)
	require.Len(t, pollers, 1)

	reports := poller.Run(context.Background(), pollers, 1, discardLogger())
	require.NoError(t, reports[0].Err)
	assert.Equal(t, detector.FirstRun, reports[0].Outcome)
	assert.Equal(t, 3, reports[0].Fetched)
	assert.Len(t, reports[0].Listings, 2, "global filter keeps engineers only")
	assert.Empty(t, n.alerts)

	sig, ok, err := st.Get(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "3"}, sig.IDs)
}

func TestBuildPollers_SkipsBrokenAndDisabledSources(t *testing.T) {
	cfg := testConfig("https://example.com/api")
	disabled := false
	cfg.Sources = append(cfg.Sources,
		config.SourceConfig{Name: "broken", Kind: "rss", URL: "https://example.com/feed"},
		config.SourceConfig{Name: "off", Kind: "html", URL: "https://example.com", Enabled: &disabled},
	)

	pollers := newPipeline(cfg, discardLogger()).buildPollers(store.NewNopStore(), &recordingNotifier{})
	require.Len(t, pollers, 1)
	assert.Equal(t, "acme", pollers[0].Name())
}

func TestPipeline_RetriesOnlyWhenConfigured(t *testing.T) {
	cfg := testConfig("https://example.com/api")
	p := newPipeline(cfg, discardLogger())

	src, err := p.buildSource(cfg.Sources[0])
	require.NoError(t, err)
	_, isRetry := src.Fetcher.(*retry.Fetcher)
	assert.False(t, isRetry)

	cfg.HTTP.Retries = 2
	src, err = p.buildSource(cfg.Sources[0])
	require.NoError(t, err)
	_, isRetry = src.Fetcher.(*retry.Fetcher)
	assert.True(t, isRetry)
}

func TestPipeline_PollerConfig(t *testing.T) {
	cfg := testConfig("https://example.com/api")
	p := newPipeline(cfg, discardLogger())
	sc := cfg.Sources[0]

	src, err := p.buildSource(sc)
	require.NoError(t, err)
	pc := p.pollerConfig(sc, src)
	assert.Equal(t, 5, pc.TopK)
	assert.Equal(t, "https://acme.example.com/careers", pc.Link, "check_url overrides the source link")
	assert.Equal(t, model.ModeSet, pc.Mode)

	sc.TopK = 3
	sc.CheckURL = ""
	pc = p.pollerConfig(sc, src)
	assert.Equal(t, 3, pc.TopK)
	assert.Equal(t, src.Link, pc.Link)
}

func TestBuildFilter_NilWhenEmpty(t *testing.T) {
	cfg := testConfig("https://example.com/api")
	assert.NotNil(t, buildFilter(cfg, cfg.Sources[0]))

	cfg.Filters = config.FilterConfig{}
	assert.Nil(t, buildFilter(cfg, cfg.Sources[0]))

	cfg.Sources[0].Filters = &config.FilterConfig{Locations: []string{"Remote"}}
	assert.NotNil(t, buildFilter(cfg, cfg.Sources[0]))
}

func TestSetupNotifier(t *testing.T) {
	cfg := &config.Config{}
	client := http.DefaultClient

	cfg.Notification = config.NotificationConfig{Type: "telegram"}
	_, isLog := setupNotifier(cfg, client, discardLogger()).(*notifier.LogNotifier)
	assert.True(t, isLog, "telegram without secrets falls back to the log")

	cfg.Notification = config.NotificationConfig{Type: "telegram", BotToken: "t", ChatID: "c"}
	_, isTelegram := setupNotifier(cfg, client, discardLogger()).(*notifier.TelegramNotifier)
	assert.True(t, isTelegram)

	cfg.Notification = config.NotificationConfig{Type: "slack", WebhookURL: "https://hooks.slack.com/x"}
	_, isSlack := setupNotifier(cfg, client, discardLogger()).(*notifier.SlackNotifier)
	assert.True(t, isSlack)
}

func TestSelectPollers(t *testing.T) {
	cfg := testConfig("https://example.com/api")
	cfg.Sources = append(cfg.Sources, config.SourceConfig{Name: "Other", Kind: "html", URL: "https://example.com"})
	pollers := newPipeline(cfg, discardLogger()).buildPollers(store.NewNopStore(), &recordingNotifier{})
	require.Len(t, pollers, 2)

	assert.Len(t, selectPollers(pollers, nil), 2)
	got := selectPollers(pollers, []string{"other"})
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].Name())
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, poller.Report{
		Source:   "amazon",
		Strategy: "json",
		Fetched:  2,
		Listings: []model.Listing{{Title: "SDE I", ID: "9", Location: "Seattle"}, {Title: "SDE II"}},
		TopK:     1,
		Signal:   model.DigestSignal("abc123"),
	})

	out := buf.String()
	assert.Contains(t, out, "amazon")
	assert.Contains(t, out, "digest abc123")
	assert.Contains(t, out, "*   1. SDE I · Seattle [9]")
	assert.Contains(t, out, "    2. SDE II")

	buf.Reset()
	printReport(&buf, poller.Report{Source: "broken", Err: &model.HTTPError{StatusCode: 503}})
	assert.Contains(t, buf.String(), "error (transport)")

	buf.Reset()
	printReport(&buf, poller.Report{Source: "quiet", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "error (unknown)")
}

func TestSnapshotLoader(t *testing.T) {
	srv := jobsServer(t)
	cfg := testConfig(srv.URL)

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Put(context.Background(), "acme", model.SetSignal([]string{"1"})))

	snap, err := snapshotLoader(newPipeline(cfg, discardLogger()), st, cfg.Sources[0])(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.All, 3)
	assert.Len(t, snap.Matched, 2)
	assert.True(t, snap.HasState)
	assert.True(t, snap.Changed())
	assert.Equal(t, []string{"1", "3"}, snap.Signal.IDs)

	stored, _, err := st.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, stored.IDs, "loader never writes state")
}

func TestKindAndModeLabels(t *testing.T) {
	assert.Equal(t, "preset greenhouse", kindLabel(config.SourceConfig{Preset: "greenhouse"}))
	assert.Equal(t, "html (render)", kindLabel(config.SourceConfig{Kind: "html", Render: true}))
	assert.Equal(t, "digest", modeLabel(config.SourceConfig{Kind: "html"}))
	assert.Equal(t, "set", modeLabel(config.SourceConfig{Kind: "json", Mode: "set"}))
}

func TestSignalLabel(t *testing.T) {
	assert.Equal(t, "1,204 ids", signalLabel(model.Signal{Mode: model.ModeSet, IDs: make([]string, 1204)}))
	assert.Equal(t, "NO_JOBS", signalLabel(model.DigestSignal("NO_JOBS")))
	assert.Equal(t, "0123456789abcdef…", signalLabel(model.DigestSignal("0123456789abcdef0123")))
}

func TestExecute_ReportsErrors(t *testing.T) {
	var stderr bytes.Buffer
	code := execute([]string{"bogus"}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)

	stderr.Reset()
	code = execute([]string{"run", "--no-such-flag"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown flag: --no-such-flag")
}
