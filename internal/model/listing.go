package model

import (
	"context"
	"time"
)

// Listing is one job or position observed in a single poll, normalized from
// whatever shape the source returned.
type Listing struct {
	Title    string // required, whitespace-normalized
	ID       string // source-native identifier; empty for pure-HTML sources
	Location string // location text or detail path, when the source exposes one
	URL      string // detail link, used only for alert formatting
}

// Extraction is the result of running an Extractor over one raw response.
//
// A zero-listing extraction is a valid result. Empty is set when the source
// positively reported "no jobs"; Blob is set when only the last-resort HTML
// fallback matched and the page text itself stands in for the listings.
type Extraction struct {
	Listings []Listing
	Strategy string
	Empty    bool
	Blob     string
}

// Fetcher retrieves the raw response body for one source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Extractor turns a raw response body into an ordered sequence of listings.
type Extractor interface {
	Extract(raw []byte) (Extraction, error)
}

// StateStore persists the last-seen signal per source.
// Get reports ok=false when the source has never been recorded.
type StateStore interface {
	Get(ctx context.Context, source string) (sig Signal, ok bool, err error)
	Put(ctx context.Context, source string, sig Signal) error
}

// StateLocker is implemented by stores that can hold a source's state
// exclusively across processes. Lock fails fast with ErrStateLocked when the
// lock is taken; unlock releases it.
type StateLocker interface {
	Lock(ctx context.Context, source string) (unlock func() error, err error)
}

// StateRecord describes one persisted source for operator tooling.
type StateRecord struct {
	Source    string
	Signal    Signal
	UpdatedAt time.Time
}

// StateAdmin is implemented by stores that support listing and resetting state.
type StateAdmin interface {
	List(ctx context.Context) ([]StateRecord, error)
	Delete(ctx context.Context, source string) error
}

// Alert is one formatted outbound message.
type Alert struct {
	Source  string
	Title   string   // headline, e.g. "AMAZON JOBS UPDATE" or the listing title
	Summary string   // one-sentence lead, e.g. "New roles detected."
	Lines   []string // top titles for digest alerts
	URL     string   // link the reader should follow
	Listing *Listing // set for per-identifier alerts
}

// Notifier delivers alerts. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// ListingFilter decides whether a listing is kept before fingerprinting.
type ListingFilter interface {
	Match(l Listing) bool
}
