// Package inspect is the interactive terminal browser behind `jobpulse
// inspect`: pick a source, poll it once without touching state, and look at
// what the change detector would see.
package inspect

import (
	"context"
	"slices"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// Snapshot is everything one dry poll of a source produced.
type Snapshot struct {
	Source   string
	Mode     model.Mode
	Strategy string
	Empty    bool
	Blob     bool

	All     []model.Listing // everything the extractor returned
	Matched []model.Listing // after the source's filter
	TopK    int

	Signal   model.Signal
	Stored   model.Signal
	HasState bool
}

// Loader produces a Snapshot for one source.
type Loader func(ctx context.Context) (Snapshot, error)

// Changed reports whether the current signal differs from the stored one.
func (s Snapshot) Changed() bool {
	return s.HasState && !s.Signal.Equal(s.Stored)
}

// InSnapshot reports whether l is among the top-K matched listings that feed
// the digest.
func (s Snapshot) InSnapshot(l model.Listing) bool {
	key := fingerprint.Key(l)
	for _, x := range fingerprint.Snapshot(s.Matched, s.TopK) {
		if fingerprint.Key(x) == key {
			return true
		}
	}
	return false
}

// Seen reports whether l's key is already in the stored set.
func (s Snapshot) Seen(l model.Listing) bool {
	if !s.HasState || s.Stored.Mode != model.ModeSet {
		return false
	}
	_, found := slices.BinarySearch(s.Stored.IDs, fingerprint.Key(l))
	return found
}
