package source

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// Strategy names, in default priority order.
const (
	StrategyAriaLabel = "aria_label"
	StrategyJobLinks  = "job_links"
	StrategyHeadings  = "headings"
)

// HTML extraction defaults.
const (
	DefaultAriaPrefix      = "Learn more about "
	DefaultJobPath         = "/jobs/"
	DefaultHeadingSelector = "h3"
	DefaultEmptyMarker     = "No jobs found"
	DefaultBlobLimit       = 5000

	minLinkTextLen    = 5
	minHeadingTextLen = 3
)

// DefaultExcludePaths are href fragments that mark navigation, not postings.
var DefaultExcludePaths = []string{"login", "jobsearch"}

// Strategy derives listings from a parsed document. Strategies are pure and
// return nil when they find nothing.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) []model.Listing
}

// HTMLOptions configures the fallback chain of an HTMLExtractor.
type HTMLOptions struct {
	Strategies      []string // order of strategies to try; empty means all, default order
	AriaPrefix      string
	JobPath         string
	ExcludePaths    []string
	HeadingSelector string
	EmptyMarker     string
	BlobFallback    bool
	BlobLimit       int
	BaseURL         string
}

// HTMLExtractor applies an ordered list of strategies; the first one that
// yields at least one listing wins. When none does, the page is checked for an
// explicit empty marker and, if enabled, reduced to an opaque text blob.
type HTMLExtractor struct {
	strategies   []Strategy
	emptyMarker  string
	blobFallback bool
	blobLimit    int
}

// NewHTMLExtractor builds the strategy chain described by opts.
func NewHTMLExtractor(opts HTMLOptions) (*HTMLExtractor, error) {
	if opts.AriaPrefix == "" {
		opts.AriaPrefix = DefaultAriaPrefix
	}
	if opts.JobPath == "" {
		opts.JobPath = DefaultJobPath
	}
	if opts.ExcludePaths == nil {
		opts.ExcludePaths = DefaultExcludePaths
	}
	if opts.HeadingSelector == "" {
		opts.HeadingSelector = DefaultHeadingSelector
	}
	if opts.EmptyMarker == "" {
		opts.EmptyMarker = DefaultEmptyMarker
	}
	if opts.BlobLimit <= 0 {
		opts.BlobLimit = DefaultBlobLimit
	}
	names := opts.Strategies
	if len(names) == 0 {
		names = []string{StrategyAriaLabel, StrategyJobLinks, StrategyHeadings}
	}

	var base *url.URL
	if opts.BaseURL != "" {
		var err error
		if base, err = url.Parse(opts.BaseURL); err != nil {
			return nil, fmt.Errorf("html extractor: base url: %w", err)
		}
	}

	e := &HTMLExtractor{
		emptyMarker:  opts.EmptyMarker,
		blobFallback: opts.BlobFallback,
		blobLimit:    opts.BlobLimit,
	}
	for _, name := range names {
		switch name {
		case StrategyAriaLabel:
			e.strategies = append(e.strategies, AriaLabelStrategy(opts.AriaPrefix))
		case StrategyJobLinks:
			e.strategies = append(e.strategies, JobLinkStrategy(opts.JobPath, opts.ExcludePaths, base))
		case StrategyHeadings:
			e.strategies = append(e.strategies, HeadingStrategy(opts.HeadingSelector))
		default:
			return nil, fmt.Errorf("html extractor: unknown strategy %q", name)
		}
	}
	return e, nil
}

// Strategies returns the configured chain, in priority order.
func (e *HTMLExtractor) Strategies() []Strategy { return e.strategies }

// Extract runs the strategy chain over raw.
func (e *HTMLExtractor) Extract(raw []byte) (model.Extraction, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.Extraction{}, &model.ParseError{Format: "html", Err: errors.New("empty document")}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return model.Extraction{}, &model.ParseError{Format: "html", Err: err}
	}

	for _, s := range e.strategies {
		if listings := s.Extract(doc); len(listings) > 0 {
			return model.Extraction{Listings: listings, Strategy: s.Name}, nil
		}
	}

	text := VisibleText(doc)
	if strings.Contains(text, e.emptyMarker) {
		return model.Extraction{Strategy: "empty_marker", Empty: true}, nil
	}
	if e.blobFallback && text != "" {
		return model.Extraction{Strategy: "blob", Blob: truncateRunes(text, e.blobLimit)}, nil
	}
	return model.Extraction{}, model.ErrAmbiguous
}

// AriaLabelStrategy reads titles from anchors whose accessibility label starts
// with prefix, e.g. aria-label="Learn more about Software Engineer".
func AriaLabelStrategy(prefix string) Strategy {
	return Strategy{
		Name: StrategyAriaLabel,
		Extract: func(doc *goquery.Document) []model.Listing {
			var out []model.Listing
			doc.Find("a[aria-label]").Each(func(_ int, s *goquery.Selection) {
				label, _ := s.Attr("aria-label")
				if !strings.HasPrefix(label, prefix) {
					return
				}
				title := fingerprint.Normalize(strings.TrimPrefix(label, prefix))
				if title == "" {
					return
				}
				href, _ := s.Attr("href")
				out = append(out, model.Listing{Title: title, Location: href})
			})
			return out
		},
	}
}

// JobLinkStrategy reads titles from anchors pointing at job detail pages:
// the href contains jobPath, contains none of the excluded fragments, and the
// visible text is longer than a short icon or button label.
func JobLinkStrategy(jobPath string, exclude []string, base *url.URL) Strategy {
	return Strategy{
		Name: StrategyJobLinks,
		Extract: func(doc *goquery.Document) []model.Listing {
			var out []model.Listing
			seen := make(map[string]bool)
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				href, _ := s.Attr("href")
				if !strings.Contains(href, jobPath) {
					return
				}
				for _, x := range exclude {
					if strings.Contains(href, x) {
						return
					}
				}
				title := spacedText(s)
				if utf8.RuneCountInString(title) <= minLinkTextLen {
					return
				}
				if seen[title+"\x00"+href] {
					return
				}
				seen[title+"\x00"+href] = true
				out = append(out, model.Listing{Title: title, Location: href, URL: resolve(base, href)})
			})
			return out
		},
	}
}

// HeadingStrategy reads titles from heading elements with more than a few
// characters of text.
func HeadingStrategy(selector string) Strategy {
	return Strategy{
		Name: StrategyHeadings,
		Extract: func(doc *goquery.Document) []model.Listing {
			var out []model.Listing
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				title := fingerprint.Normalize(s.Text())
				if utf8.RuneCountInString(title) <= minHeadingTextLen {
					return
				}
				out = append(out, model.Listing{Title: title})
			})
			return out
		},
	}
}

// VisibleText returns the whitespace-normalized text of the document body,
// without script and style content.
func VisibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, template").Remove()
	return fingerprint.Normalize(body.Text())
}

// spacedText joins the text nodes under s with single spaces, so that
// <a><div>Data</div><div>Engineer</div></a> reads "Data Engineer".
func spacedText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			parts = append(parts, c.Text())
			return
		}
		parts = append(parts, spacedText(c))
	})
	return fingerprint.Normalize(strings.Join(parts, " "))
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
