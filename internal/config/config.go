// Package config loads the YAML configuration, expands secrets from the
// environment and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
	"github.com/amishk599/jobpulse/internal/source"
	"github.com/amishk599/jobpulse/internal/store"
)

// EnvConfigPath names the environment variable that overrides the default
// config location.
const EnvConfigPath = "JOBPULSE_CONFIG"

// DefaultPath is used when neither the flag nor EnvConfigPath is set.
const DefaultPath = "config.yaml"

// Defaults.
const (
	defaultPollingInterval = 15 * time.Minute
	defaultRetryBaseDelay  = 5 * time.Second
	defaultStateDir        = "state"
	defaultSQLitePath      = "state/jobpulse.db"
)

// Config is the root configuration.
type Config struct {
	TopK            int
	Concurrency     int
	Schedule        string        // 5-field cron; takes precedence over PollingInterval
	PollingInterval time.Duration // used by watch when Schedule is empty
	HTTP            HTTPConfig
	State           StateConfig
	Notification    NotificationConfig
	Filters         FilterConfig
	Sources         []SourceConfig
}

// HTTPConfig controls the shared HTTP client and fetch decorators.
type HTTPConfig struct {
	Timeout        time.Duration
	Retries        int
	RetryBaseDelay time.Duration
	MinDelay       time.Duration // minimum gap between requests to the same host
}

// StateConfig selects the state backend.
type StateConfig struct {
	Backend string `yaml:"backend" validate:"omitempty,oneof=file sqlite postgres"`
	Dir     string `yaml:"dir"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// NotificationConfig controls which notifier is used and its settings.
// BotToken and ChatID fall back to the BOT_TOKEN and CHAT_ID environment
// variables.
type NotificationConfig struct {
	Type       string `yaml:"type" validate:"omitempty,oneof=telegram slack log"`
	Required   bool   `yaml:"required"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	WebhookURL string `yaml:"webhook_url"`
	APIBaseURL string `yaml:"api_base_url" validate:"omitempty,url"`
}

// HasTelegramSecrets reports whether both Telegram secrets are present.
func (n NotificationConfig) HasTelegramSecrets() bool {
	return n.BotToken != "" && n.ChatID != ""
}

// FilterConfig holds keyword and location filter settings.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	Locations            []string `yaml:"locations"`
}

// IsZero reports whether no filter keyword is set.
func (f FilterConfig) IsZero() bool {
	return len(f.TitleKeywords) == 0 && len(f.TitleExcludeKeywords) == 0 && len(f.Locations) == 0
}

// HTMLConfig tunes the HTML strategy chain of one source.
type HTMLConfig struct {
	Strategies      []string `yaml:"strategies" validate:"dive,oneof=aria_label job_links headings"`
	AriaPrefix      string   `yaml:"aria_prefix"`
	JobPath         string   `yaml:"job_path"`
	ExcludePaths    []string `yaml:"exclude_paths"`
	HeadingSelector string   `yaml:"heading_selector"`
	EmptyMarker     string   `yaml:"empty_marker"`
	BlobFallback    bool     `yaml:"blob_fallback"`
	BlobLimit       int      `yaml:"blob_limit" validate:"gte=0"`
}

// SourceConfig describes a single job source to poll.
type SourceConfig struct {
	Name         string            `yaml:"name" validate:"required"`
	Kind         string            `yaml:"kind" validate:"omitempty,oneof=json workday html"`
	Preset       string            `yaml:"preset"`
	Enabled      *bool             `yaml:"enabled"`
	URL          string            `yaml:"url" validate:"omitempty,url"`
	Method       string            `yaml:"method" validate:"omitempty,oneof=GET POST"`
	Body         string            `yaml:"body"`
	Headers      map[string]string `yaml:"headers"`
	BoardToken   string            `yaml:"board_token"`
	SearchText   string            `yaml:"search_text"`
	Mode         string            `yaml:"mode" validate:"omitempty,oneof=digest set"`
	TopK         int               `yaml:"top_k" validate:"gte=0"`
	ListPath     string            `yaml:"list_path"`
	Fields       source.FieldMap   `yaml:"fields"`
	BaseURL      string            `yaml:"base_url"`
	Link         string            `yaml:"link"`
	CheckURL     string            `yaml:"check_url"`
	AlertTitle   string            `yaml:"alert_title"`
	AlertSummary string            `yaml:"alert_summary"`
	Render       bool              `yaml:"render"`
	WaitFor      string            `yaml:"wait_for"`
	ChromePath   string            `yaml:"chrome_path"`
	HTML         HTMLConfig        `yaml:"html"`
	Filters      *FilterConfig     `yaml:"filters"`
}

// IsEnabled reports whether the source should be polled. Sources are enabled
// unless explicitly disabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Spec converts the source config into a source.Spec.
func (s SourceConfig) Spec(timeout time.Duration) source.Spec {
	return source.Spec{
		Name:       s.Name,
		Kind:       s.Kind,
		Preset:     s.Preset,
		URL:        s.URL,
		Method:     s.Method,
		Body:       s.Body,
		Headers:    s.Headers,
		BoardToken: s.BoardToken,
		SearchText: s.SearchText,
		Mode:       model.Mode(s.Mode),
		ListPath:   s.ListPath,
		Fields:     s.Fields,
		BaseURL:    s.BaseURL,
		Link:       s.Link,
		HTML: source.HTMLOptions{
			Strategies:      s.HTML.Strategies,
			AriaPrefix:      s.HTML.AriaPrefix,
			JobPath:         s.HTML.JobPath,
			ExcludePaths:    s.HTML.ExcludePaths,
			HeadingSelector: s.HTML.HeadingSelector,
			EmptyMarker:     s.HTML.EmptyMarker,
			BlobFallback:    s.HTML.BlobFallback,
			BlobLimit:       s.HTML.BlobLimit,
			BaseURL:         s.BaseURL,
		},
		Render:     s.Render,
		WaitFor:    s.WaitFor,
		ChromePath: s.ChromePath,
		Timeout:    timeout,
	}
}

// EffectiveFilters returns the source's filters, or the global ones when the
// source sets none.
func (c *Config) EffectiveFilters(s SourceConfig) FilterConfig {
	if s.Filters != nil {
		return *s.Filters
	}
	return c.Filters
}

// EnabledSources returns the sources that should be polled, in config order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	TopK            int                `yaml:"top_k" validate:"gte=0"`
	Concurrency     int                `yaml:"concurrency" validate:"gte=0"`
	Schedule        string             `yaml:"schedule"`
	PollingInterval string             `yaml:"polling_interval"`
	HTTP            rawHTTPConfig      `yaml:"http"`
	State           StateConfig        `yaml:"state"`
	Notification    NotificationConfig `yaml:"notification"`
	Filters         FilterConfig       `yaml:"filters"`
	Sources         []SourceConfig     `yaml:"sources" validate:"required,min=1,dive"`
}

type rawHTTPConfig struct {
	Timeout        string `yaml:"timeout"`
	Retries        int    `yaml:"retries" validate:"gte=0,lte=10"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
	MinDelay       string `yaml:"min_delay"`
}

// ResolvePath picks the config file: the flag value, then $JOBPULSE_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config is loaded first; it never overrides variables
// already set in the environment.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(&raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := &Config{
		TopK:         raw.TopK,
		Concurrency:  raw.Concurrency,
		Schedule:     strings.TrimSpace(raw.Schedule),
		State:        raw.State,
		Notification: raw.Notification,
		Filters:      raw.Filters,
		Sources:      raw.Sources,
	}
	if cfg.TopK == 0 {
		cfg.TopK = fingerprint.DefaultTopK
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}

	if cfg.PollingInterval, err = parseDuration("polling_interval", raw.PollingInterval, defaultPollingInterval); err != nil {
		return nil, err
	}
	if cfg.HTTP.Timeout, err = parseDuration("http.timeout", raw.HTTP.Timeout, source.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.HTTP.RetryBaseDelay, err = parseDuration("http.retry_base_delay", raw.HTTP.RetryBaseDelay, defaultRetryBaseDelay); err != nil {
		return nil, err
	}
	if cfg.HTTP.MinDelay, err = parseDuration("http.min_delay", raw.HTTP.MinDelay, 0); err != nil {
		return nil, err
	}
	cfg.HTTP.Retries = raw.HTTP.Retries

	applyStateDefaults(&cfg.State)
	applySecrets(&cfg.Notification)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func applyStateDefaults(s *StateConfig) {
	if s.Backend == "" {
		s.Backend = "file"
	}
	if s.Dir == "" {
		s.Dir = defaultStateDir
	}
	if s.Path == "" {
		s.Path = defaultSQLitePath
	}
	if s.DSN == "" {
		s.DSN = os.Getenv("JOBPULSE_DATABASE_URL")
	}
}

func applySecrets(n *NotificationConfig) {
	if n.Type == "" {
		n.Type = "telegram"
	}
	if n.BotToken == "" {
		n.BotToken = os.Getenv("BOT_TOKEN")
	}
	if n.ChatID == "" {
		n.ChatID = os.Getenv("CHAT_ID")
	}
}

func validate(cfg *Config) error {
	if cfg.Schedule != "" {
		if err := gocron.NewDefaultCron(false).IsValid(cfg.Schedule, time.Local, time.Now()); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
	} else if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling_interval must be positive, got %v", cfg.PollingInterval)
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %v", cfg.HTTP.Timeout)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	stateFiles := make(map[string]string, len(cfg.Sources))
	enabled := 0
	for _, s := range cfg.Sources {
		key := strings.ToLower(s.Name)
		if seen[key] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[key] = true
		file := store.SafeName(key)
		if prev, ok := stateFiles[file]; ok {
			return fmt.Errorf("source %q shares its state file name with source %q", s.Name, prev)
		}
		stateFiles[file] = s.Name

		if s.IsEnabled() {
			enabled++
		}
		if s.Preset != "" {
			p, ok := source.LookupPreset(s.Preset)
			if !ok {
				return fmt.Errorf("source %s: unknown preset %q (known: %s)", s.Name, s.Preset, strings.Join(source.PresetNames(), ", "))
			}
			if s.URL == "" && p.URL == "" {
				return fmt.Errorf("source %s: url is required for preset %q", s.Name, s.Preset)
			}
			if s.URL == "" && strings.Contains(p.URL, "{board}") && s.BoardToken == "" {
				return fmt.Errorf("source %s: board_token is required for preset %q", s.Name, s.Preset)
			}
		} else {
			if s.Kind == "" {
				return fmt.Errorf("source %s: kind or preset is required", s.Name)
			}
			if s.URL == "" {
				return fmt.Errorf("source %s: url is required", s.Name)
			}
		}
		if s.Kind == source.KindJSON && s.Preset == "" && s.Fields.Title == "" {
			return fmt.Errorf("source %s: fields.title is required for json sources", s.Name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.State.Backend == "postgres" && cfg.State.DSN == "" {
		return fmt.Errorf("state.dsn (or JOBPULSE_DATABASE_URL) is required when state.backend is \"postgres\"")
	}

	n := cfg.Notification
	switch n.Type {
	case "telegram":
		if n.Required && !n.HasTelegramSecrets() {
			return fmt.Errorf("BOT_TOKEN and CHAT_ID are required when notification.required is true")
		}
	case "slack":
		if n.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(n.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	return nil
}
