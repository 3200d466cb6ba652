package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// workdayPageSize is how many postings are requested per poll. Only the
// newest page matters for change detection.
const workdayPageSize = 20

// workdayListingRequest is the POST body for the Workday jobs listing endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// workdayListingResponse is the response from the Workday jobs listing endpoint.
type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

// WorkdayRequestBody returns the listing query for the newest postings.
// searchText narrows the board the way the site's search box does.
func WorkdayRequestBody(searchText string) []byte {
	body, _ := json.Marshal(workdayListingRequest{
		AppliedFacets: map[string]any{},
		Limit:         workdayPageSize,
		Offset:        0,
		SearchText:    searchText,
	})
	return body
}

// WorkdayExtractor reads the jobPostings array of a Workday career site.
type WorkdayExtractor struct {
	siteURL string
}

// NewWorkdayExtractor creates an extractor for the API endpoint apiURL, e.g.
// https://acme.wd1.myworkdayjobs.com/wday/cxs/acme/Careers/jobs.
func NewWorkdayExtractor(apiURL string) *WorkdayExtractor {
	return &WorkdayExtractor{siteURL: workdaySiteURL(apiURL)}
}

// Extract decodes the listing response. Postings are returned newest first.
func (e *WorkdayExtractor) Extract(raw []byte) (model.Extraction, error) {
	var resp workdayListingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.Extraction{}, &model.ParseError{Format: "json", Err: fmt.Errorf("workday listing decode: %w", err)}
	}

	listings := make([]model.Listing, 0, len(resp.JobPostings))
	for _, p := range resp.JobPostings {
		title := fingerprint.Normalize(p.Title)
		if title == "" {
			continue
		}
		l := model.Listing{
			Title:    title,
			ID:       p.ExternalPath,
			Location: fingerprint.Normalize(p.LocationsText),
		}
		if e.siteURL != "" && p.ExternalPath != "" {
			l.URL = e.siteURL + p.ExternalPath
		}
		listings = append(listings, l)
	}

	return model.Extraction{
		Listings: listings,
		Strategy: "workday",
		Empty:    len(listings) == 0,
	}, nil
}

// workdaySiteURL derives the public career site root from the CXS API URL:
// https://host/wday/cxs/{tenant}/{site}/jobs -> https://host/{site}
func workdaySiteURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "wday" || parts[1] != "cxs" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/" + parts[3]
}
