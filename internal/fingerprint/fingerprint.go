// Package fingerprint reduces an ordered snapshot of listings to a stable,
// comparable signal.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/amishk599/jobpulse/internal/model"
)

const (
	// DefaultTopK is the snapshot size used when a source does not override it.
	DefaultTopK = 5

	// EmptySentinel is the digest of a snapshot with no listings.
	EmptySentinel = "NO_JOBS"

	// keyDelimiter joins snapshot keys. It is not expected inside job titles.
	keyDelimiter = "||"

	blobPrefix = "blob:"
)

// Normalize collapses all runs of whitespace and trims the result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key returns the comparison key for a listing: its identifier when the source
// exposes one, else its normalized title.
func Key(l model.Listing) string {
	if id := strings.TrimSpace(l.ID); id != "" {
		return id
	}
	return Normalize(l.Title)
}

// Snapshot returns the first k listings in source order.
func Snapshot(listings []model.Listing, k int) []model.Listing {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(listings) > k {
		return listings[:k]
	}
	return listings
}

// Digest hashes the ordered keys of the top-k listings. An empty snapshot maps
// to EmptySentinel rather than the hash of an empty string.
func Digest(listings []model.Listing, k int) string {
	snap := Snapshot(listings, k)
	if len(snap) == 0 {
		return EmptySentinel
	}
	keys := make([]string, len(snap))
	for i, l := range snap {
		keys[i] = Key(l)
	}
	sum := sha256.Sum256([]byte(strings.Join(keys, keyDelimiter)))
	return hex.EncodeToString(sum[:])
}

// BlobDigest hashes an opaque page-text prefix. The prefix keeps blob digests
// disjoint from listing digests.
func BlobDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return blobPrefix + hex.EncodeToString(sum[:])
}

// IsBlob reports whether digest came from BlobDigest.
func IsBlob(digest string) bool {
	return strings.HasPrefix(digest, blobPrefix)
}

// Identifiers returns the comparison keys of every listing, in source order.
// Set mode tracks all identifiers in the response, not only the top-k.
func Identifiers(listings []model.Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if k := Key(l); k != "" {
			ids = append(ids, k)
		}
	}
	return ids
}

// FromExtraction builds the signal for one poll.
func FromExtraction(e model.Extraction, mode model.Mode, k int) (model.Signal, error) {
	switch mode {
	case model.ModeDigest:
		switch {
		case len(e.Listings) > 0:
			return model.DigestSignal(Digest(e.Listings, k)), nil
		case e.Blob != "":
			return model.DigestSignal(BlobDigest(e.Blob)), nil
		default:
			return model.DigestSignal(EmptySentinel), nil
		}
	case model.ModeSet:
		if len(e.Listings) == 0 && e.Blob != "" {
			return model.Signal{}, fmt.Errorf("set mode needs discrete listings: %w", model.ErrAmbiguous)
		}
		return model.SetSignal(Identifiers(e.Listings)), nil
	}
	return model.Signal{}, fmt.Errorf("unknown mode %q", mode)
}
