package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
	"github.com/amishk599/jobpulse/internal/source"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// unsetEnv clears key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
polling_interval: 5m
top_k: 3
concurrency: 4
http:
  timeout: 10s
  retries: 2
  min_delay: 1s
state:
  backend: sqlite
  path: data/jobs.db
filters:
  title_keywords:
    - engineer
  locations:
    - Remote
sources:
  - name: acme
    preset: greenhouse
    board_token: acme
    mode: set
  - name: careers
    kind: html
    url: https://careers.example.com/jobs
    check_url: https://careers.example.com/
    html:
      strategies: [job_links, headings]
      blob_fallback: true
    filters:
      title_keywords: [designer]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollingInterval != 5*time.Minute {
		t.Errorf("PollingInterval = %v, want 5m", cfg.PollingInterval)
	}
	if cfg.TopK != 3 || cfg.Concurrency != 4 {
		t.Errorf("TopK/Concurrency = %d/%d, want 3/4", cfg.TopK, cfg.Concurrency)
	}
	if cfg.HTTP.Timeout != 10*time.Second || cfg.HTTP.Retries != 2 || cfg.HTTP.MinDelay != time.Second {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.HTTP.RetryBaseDelay != defaultRetryBaseDelay {
		t.Errorf("RetryBaseDelay = %v, want default", cfg.HTTP.RetryBaseDelay)
	}
	if cfg.State.Backend != "sqlite" || cfg.State.Path != "data/jobs.db" {
		t.Errorf("State = %+v", cfg.State)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].Name != "acme" || cfg.Sources[0].BoardToken != "acme" {
		t.Fatalf("Sources = %+v", cfg.Sources)
	}
	if got := cfg.EffectiveFilters(cfg.Sources[0]); len(got.TitleKeywords) != 1 || got.TitleKeywords[0] != "engineer" {
		t.Errorf("global filters = %+v", got)
	}
	if got := cfg.EffectiveFilters(cfg.Sources[1]); len(got.TitleKeywords) != 1 || got.TitleKeywords[0] != "designer" {
		t.Errorf("source filters = %+v", got)
	}
	if !cfg.Sources[1].HTML.BlobFallback {
		t.Error("html.blob_fallback not parsed")
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "BOT_TOKEN")
	unsetEnv(t, "CHAT_ID")
	path := writeConfig(t, `
sources:
  - name: acme
    preset: lever
    board_token: acme
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.PollingInterval != defaultPollingInterval {
		t.Errorf("PollingInterval = %v", cfg.PollingInterval)
	}
	if cfg.HTTP.Timeout != source.DefaultTimeout || cfg.HTTP.Retries != 0 {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.State.Backend != "file" || cfg.State.Dir != "state" {
		t.Errorf("State = %+v", cfg.State)
	}
	if cfg.Notification.Type != "telegram" || cfg.Notification.HasTelegramSecrets() {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
	if !cfg.Sources[0].IsEnabled() {
		t.Error("source should be enabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "polling_interval: [broken")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "zero polling interval",
			content: `
polling_interval: 0
sources:
  - {name: acme, preset: lever, board_token: acme}
`,
			wantErr: "polling_interval",
		},
		{
			name: "bad duration",
			content: `
http: {timeout: soon}
sources:
  - {name: acme, preset: lever, board_token: acme}
`,
			wantErr: "http.timeout",
		},
		{
			name: "invalid cron",
			content: `
schedule: "every now and then"
sources:
  - {name: acme, preset: lever, board_token: acme}
`,
			wantErr: "invalid schedule",
		},
		{
			name:    "no sources",
			content: "polling_interval: 5m\n",
			wantErr: "Sources",
		},
		{
			name: "no enabled sources",
			content: `
sources:
  - {name: acme, preset: lever, board_token: acme, enabled: false}
`,
			wantErr: "at least one source",
		},
		{
			name: "duplicate names",
			content: `
sources:
  - {name: acme, preset: lever, board_token: acme}
  - {name: ACME, preset: ashby, board_token: acme}
`,
			wantErr: "duplicate source name",
		},
		{
			name: "state file name collision",
			content: `
sources:
  - {name: acme jobs, preset: lever, board_token: acme}
  - {name: Acme_Jobs, preset: ashby, board_token: acme}
`,
			wantErr: "shares its state file name",
		},
		{
			name: "unknown preset",
			content: `
sources:
  - {name: acme, preset: taleo}
`,
			wantErr: "unknown preset",
		},
		{
			name: "preset without endpoint",
			content: `
sources:
  - {name: amazon, preset: amazon}
`,
			wantErr: "url is required for preset",
		},
		{
			name: "preset without board token",
			content: `
sources:
  - {name: acme, preset: greenhouse}
`,
			wantErr: "board_token is required",
		},
		{
			name: "missing kind",
			content: `
sources:
  - {name: acme, url: "https://example.com/api"}
`,
			wantErr: "kind or preset",
		},
		{
			name: "missing url",
			content: `
sources:
  - {name: acme, kind: html}
`,
			wantErr: "url is required",
		},
		{
			name: "unknown kind",
			content: `
sources:
  - {name: acme, kind: rss, url: "https://example.com/feed"}
`,
			wantErr: "Kind",
		},
		{
			name: "unknown mode",
			content: `
sources:
  - {name: acme, preset: lever, board_token: acme, mode: diff}
`,
			wantErr: "Mode",
		},
		{
			name: "json without title field",
			content: `
sources:
  - {name: acme, kind: json, url: "https://example.com/api"}
`,
			wantErr: "fields.title",
		},
		{
			name: "unknown strategy",
			content: `
sources:
  - name: acme
    kind: html
    url: https://example.com/jobs
    html: {strategies: [magic]}
`,
			wantErr: "Strategies",
		},
		{
			name: "slack without webhook",
			content: `
notification: {type: slack}
sources:
  - {name: acme, preset: lever, board_token: acme}
`,
			wantErr: "webhook_url",
		},
		{
			name: "postgres without dsn",
			content: `
state: {backend: postgres}
sources:
  - {name: acme, preset: lever, board_token: acme}
`,
			wantErr: "state.dsn",
		},
	}

	unsetEnv(t, "JOBPULSE_DATABASE_URL")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Load: expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ValidCron(t *testing.T) {
	path := writeConfig(t, `
schedule: "*/15 * * * *"
sources:
  - {name: acme, preset: lever, board_token: acme}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "*/15 * * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHAT_ID", "42")
	t.Setenv("JOBS_HOST", "jobs.example.com")
	path := writeConfig(t, `
notification:
  required: true
sources:
  - name: acme
    kind: html
    url: https://${JOBS_HOST}/openings
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources[0].URL != "https://jobs.example.com/openings" {
		t.Errorf("URL = %q", cfg.Sources[0].URL)
	}
	if cfg.Notification.BotToken != "123:abc" || cfg.Notification.ChatID != "42" {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	unsetEnv(t, "BOT_TOKEN")
	unsetEnv(t, "CHAT_ID")
	path := writeConfig(t, `
notification: {required: true}
sources:
  - {name: acme, preset: lever, board_token: acme}
`)
	env := "BOT_TOKEN=from-dotenv\nCHAT_ID=7\n"
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(env), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notification.BotToken != "from-dotenv" || cfg.Notification.ChatID != "7" {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
}

func TestLoad_RequiredTelegramSecrets(t *testing.T) {
	unsetEnv(t, "BOT_TOKEN")
	unsetEnv(t, "CHAT_ID")
	path := writeConfig(t, `
notification: {required: true}
sources:
  - {name: acme, preset: lever, board_token: acme}
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Fatalf("Load error = %v, want missing secrets", err)
	}
}

func TestSourceConfig_Spec(t *testing.T) {
	sc := SourceConfig{
		Name:       "careers",
		Kind:       "html",
		URL:        "https://example.com/jobs",
		Mode:       "set",
		BaseURL:    "https://example.com",
		Render:     true,
		WaitFor:    "#jobs",
		HTML:       HTMLConfig{Strategies: []string{"headings"}, BlobLimit: 100},
		Headers:    map[string]string{"X-Test": "1"},
		SearchText: "engineer",
	}
	spec := sc.Spec(7 * time.Second)
	if spec.Name != "careers" || spec.Kind != source.KindHTML || spec.Mode != model.ModeSet {
		t.Errorf("spec = %+v", spec)
	}
	if spec.Timeout != 7*time.Second || !spec.Render || spec.WaitFor != "#jobs" {
		t.Errorf("render settings = %+v", spec)
	}
	if spec.HTML.BaseURL != "https://example.com" || spec.HTML.BlobLimit != 100 || spec.HTML.Strategies[0] != "headings" {
		t.Errorf("HTML = %+v", spec.HTML)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultPath)
	}
	t.Setenv(EnvConfigPath, "/etc/jobpulse.yaml")
	if got := ResolvePath(""); got != "/etc/jobpulse.yaml" {
		t.Errorf("ResolvePath with env = %q", got)
	}
	if got := ResolvePath("mine.yaml"); got != "mine.yaml" {
		t.Errorf("ResolvePath with flag = %q", got)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load example: %v", err)
	}
	if got := len(cfg.EnabledSources()); got != 5 {
		t.Errorf("enabled sources = %d, want 5", got)
	}
	for _, s := range cfg.Sources {
		if s.Name == "meta" && !s.HTML.BlobFallback {
			t.Error("meta should opt into the blob fallback")
		}
	}
}
