package source

import (
	"sort"
	"strings"

	"github.com/amishk599/jobpulse/internal/model"
)

// Source kinds.
const (
	KindJSON    = "json"
	KindWorkday = "workday"
	KindHTML    = "html"
)

// Preset is a known job-board API: its endpoint, where the listing array
// lives and how elements map to listings.
type Preset struct {
	Kind     string
	URL      string // may contain {board}
	ListPath string
	Fields   FieldMap
	BaseURL  string // resolves relative listing URLs
	Link     string // per-listing link template with {id}
	Mode     model.Mode
}

var presets = map[string]Preset{
	"amazon": {
		Kind:     KindJSON,
		ListPath: "$.jobs",
		Fields:   FieldMap{Title: "title", ID: "id_icims", Location: "normalized_location", URL: "job_path"},
		BaseURL:  "https://www.amazon.jobs",
		Mode:     model.ModeDigest,
	},
	"microsoft": {
		Kind:     KindJSON,
		ListPath: "$.operationResult.result.jobs",
		Fields:   FieldMap{Title: "title", ID: "jobId", Location: "properties.primaryLocation"},
		Link:     "https://jobs.careers.microsoft.com/global/en/job/{id}",
		Mode:     model.ModeSet,
	},
	"greenhouse": {
		Kind:     KindJSON,
		URL:      "https://boards-api.greenhouse.io/v1/boards/{board}/jobs",
		ListPath: "$.jobs",
		Fields:   FieldMap{Title: "title", ID: "id", Location: "location.name", URL: "absolute_url"},
		Mode:     model.ModeSet,
	},
	"lever": {
		Kind:     KindJSON,
		URL:      "https://api.lever.co/v0/postings/{board}?mode=json",
		ListPath: "$",
		Fields:   FieldMap{Title: "text", ID: "id", Location: "categories.location", URL: "hostedUrl"},
		Mode:     model.ModeSet,
	},
	"ashby": {
		Kind:     KindJSON,
		URL:      "https://api.ashbyhq.com/posting-api/job-board/{board}",
		ListPath: "$.jobs",
		Fields:   FieldMap{Title: "title", ID: "id", Location: "location", URL: "jobUrl"},
		Mode:     model.ModeSet,
	},
	"gem": {
		Kind:     KindJSON,
		URL:      "https://api.gem.com/job_board/v0/{board}/job_posts/",
		ListPath: "$",
		Fields:   FieldMap{Title: "title", ID: "id", Location: "location.name", URL: "absolute_url"},
		Mode:     model.ModeSet,
	},
	"workday": {
		Kind: KindWorkday,
		Mode: model.ModeDigest,
	},
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(name)]
	return p, ok
}

// PresetNames lists the known presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ExpandURL substitutes {board} in a preset URL.
func (p Preset) ExpandURL(board string) string {
	return strings.ReplaceAll(p.URL, "{board}", board)
}

// Merge overlays the non-empty fields of override onto fm.
func (fm FieldMap) Merge(override FieldMap) FieldMap {
	if override.Title != "" {
		fm.Title = override.Title
	}
	if override.ID != "" {
		fm.ID = override.ID
	}
	if override.Location != "" {
		fm.Location = override.Location
	}
	if override.URL != "" {
		fm.URL = override.URL
	}
	return fm
}
