// Package filter narrows a source's listings before they are fingerprinted.
package filter

import (
	"strings"

	"github.com/amishk599/jobpulse/internal/model"
)

// Ensure KeywordFilter implements model.ListingFilter.
var _ model.ListingFilter = (*KeywordFilter)(nil)

// KeywordFilter keeps listings whose title contains any include keyword, no
// exclude keyword, and whose location contains any location keyword.
// Matching is case-insensitive. Empty include and location lists match all.
type KeywordFilter struct {
	include   []string
	exclude   []string
	locations []string
}

// NewKeywordFilter returns a filter over lowercased copies of the keywords.
func NewKeywordFilter(include, exclude, locations []string) *KeywordFilter {
	return &KeywordFilter{
		include:   lower(include),
		exclude:   lower(exclude),
		locations: lower(locations),
	}
}

// Match reports whether l passes the filter.
func (f *KeywordFilter) Match(l model.Listing) bool {
	title := strings.ToLower(l.Title)
	if len(f.include) > 0 && !containsAny(title, f.include) {
		return false
	}
	if containsAny(title, f.exclude) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(strings.ToLower(l.Location), f.locations) {
		return false
	}
	return true
}

// Empty reports whether the filter passes everything.
func (f *KeywordFilter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0 && len(f.locations) == 0
}

// Apply returns the listings that pass f, preserving order. A nil filter
// passes everything.
func Apply(f model.ListingFilter, listings []model.Listing) []model.Listing {
	if f == nil {
		return listings
	}
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
