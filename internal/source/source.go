// Package source builds the fetch and extract halves of each configured job
// source: JSON APIs (optionally from a preset), Workday career sites and
// server-rendered HTML pages.
package source

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobpulse/internal/model"
)

// Spec is the fully resolved description of one source.
type Spec struct {
	Name       string
	Kind       string // json | workday | html; inferred from Preset when empty
	Preset     string
	URL        string
	Method     string
	Body       string
	Headers    map[string]string
	BoardToken string
	SearchText string
	Mode       model.Mode // empty means the preset's mode, else digest

	// JSON sources.
	ListPath string
	Fields   FieldMap
	BaseURL  string
	Link     string

	// HTML sources.
	HTML       HTMLOptions
	Render     bool
	WaitFor    string
	ChromePath string
	Timeout    time.Duration
}

// Source is a ready-to-poll source.
type Source struct {
	Name      string
	Kind      string
	Mode      model.Mode
	URL       string
	Link      string // page the reader is sent to by digest alerts
	Fetcher   model.Fetcher
	Extractor model.Extractor
}

// Build resolves presets and defaults in spec and wires its fetcher and
// extractor. client is shared by all HTTP sources.
func Build(spec Spec, client *http.Client) (*Source, error) {
	if spec.Preset != "" {
		p, ok := LookupPreset(spec.Preset)
		if !ok {
			return nil, fmt.Errorf("source %s: unknown preset %q", spec.Name, spec.Preset)
		}
		spec = applyPreset(spec, p)
	}
	if spec.URL == "" {
		return nil, fmt.Errorf("source %s: url is required", spec.Name)
	}
	if spec.Mode == "" {
		spec.Mode = model.ModeDigest
	}

	src := &Source{
		Name: spec.Name,
		Kind: spec.Kind,
		Mode: spec.Mode,
		URL:  spec.URL,
		Link: spec.Link,
	}
	if src.Link == "" || strings.Contains(src.Link, "{id}") {
		src.Link = spec.URL
		if spec.Kind == KindWorkday {
			if site := workdaySiteURL(spec.URL); site != "" {
				src.Link = site
			}
		}
	}

	switch spec.Kind {
	case KindJSON:
		ex, err := NewJSONExtractor(spec.ListPath, spec.Fields, spec.BaseURL, spec.Link)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.Name, err)
		}
		src.Extractor = ex
		src.Fetcher = NewHTTPFetcher(Request{
			Method:  spec.Method,
			URL:     spec.URL,
			Headers: mergeHeaders(JSONHeaders(), spec.Headers),
			Body:    []byte(spec.Body),
		}, client)

	case KindWorkday:
		src.Extractor = NewWorkdayExtractor(spec.URL)
		body := []byte(spec.Body)
		if len(body) == 0 {
			body = WorkdayRequestBody(spec.SearchText)
		}
		src.Fetcher = NewHTTPFetcher(Request{
			Method:  http.MethodPost,
			URL:     spec.URL,
			Headers: mergeHeaders(JSONHeaders(), spec.Headers),
			Body:    body,
		}, client)

	case KindHTML:
		opts := spec.HTML
		if opts.BaseURL == "" {
			opts.BaseURL = spec.URL
		}
		ex, err := NewHTMLExtractor(opts)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", spec.Name, err)
		}
		src.Extractor = ex
		if spec.Render {
			src.Fetcher = NewBrowserFetcher(spec.URL, spec.WaitFor, spec.ChromePath, spec.Timeout)
		} else {
			src.Fetcher = NewHTTPFetcher(Request{
				Method:  spec.Method,
				URL:     spec.URL,
				Headers: mergeHeaders(BrowserHeaders(), spec.Headers),
			}, client)
		}

	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", spec.Name, spec.Kind)
	}

	return src, nil
}

func applyPreset(spec Spec, p Preset) Spec {
	if spec.Kind == "" {
		spec.Kind = p.Kind
	}
	if spec.URL == "" && p.URL != "" {
		spec.URL = p.ExpandURL(spec.BoardToken)
	}
	if spec.ListPath == "" {
		spec.ListPath = p.ListPath
	}
	spec.Fields = p.Fields.Merge(spec.Fields)
	if spec.BaseURL == "" {
		spec.BaseURL = p.BaseURL
	}
	if spec.Link == "" {
		spec.Link = p.Link
	}
	if spec.Mode == "" {
		spec.Mode = p.Mode
	}
	return spec
}

func mergeHeaders(base, override map[string]string) map[string]string {
	out := maps.Clone(base)
	maps.Copy(out, override)
	return out
}
