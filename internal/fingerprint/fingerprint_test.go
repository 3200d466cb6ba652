package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobpulse/internal/model"
)

func titled(titles ...string) []model.Listing {
	out := make([]model.Listing, len(titles))
	for i, t := range titles {
		out[i] = model.Listing{Title: t}
	}
	return out
}

func withIDs(ids ...string) []model.Listing {
	out := make([]model.Listing, len(ids))
	for i, id := range ids {
		out[i] = model.Listing{Title: "Software Engineer", ID: id}
	}
	return out
}

func TestDigest_Deterministic(t *testing.T) {
	a := withIDs("J5", "J4", "J3", "J2", "J1")
	b := withIDs("J5", "J4", "J3", "J2", "J1")
	assert.Equal(t, Digest(a, 5), Digest(b, 5))
	assert.Len(t, Digest(a, 5), 64)
}

func TestDigest_ChangeSensitive(t *testing.T) {
	base := Digest(withIDs("J5", "J4", "J3", "J2", "J1"), 5)

	assert.NotEqual(t, base, Digest(withIDs("J6", "J5", "J4", "J3", "J2"), 5), "new head listing")
	assert.NotEqual(t, base, Digest(withIDs("J4", "J5", "J3", "J2", "J1"), 5), "reordering")
	assert.NotEqual(t, base, Digest(withIDs("J5", "J4", "J3", "J2"), 5), "truncation boundary")
}

func TestDigest_IgnoresBeyondTopK(t *testing.T) {
	a := withIDs("J7", "J6", "J5", "J4", "J3", "J2")
	b := withIDs("J7", "J6", "J5", "J4", "J3", "J1")
	assert.Equal(t, Digest(a, 5), Digest(b, 5))
}

func TestDigest_WhitespaceNoise(t *testing.T) {
	a := titled("Software  Engineer\n", " New Grad ")
	b := titled("Software Engineer", "New Grad")
	assert.Equal(t, Digest(a, 5), Digest(b, 5))
}

func TestDigest_EmptyIsSentinel(t *testing.T) {
	assert.Equal(t, EmptySentinel, Digest(nil, 5))
	assert.Equal(t, EmptySentinel, Digest([]model.Listing{}, 5))
	assert.NotEqual(t, EmptySentinel, Digest(titled(""), 5))
}

func TestKey_PrefersIdentifier(t *testing.T) {
	assert.Equal(t, "1234", Key(model.Listing{Title: "Engineer", ID: " 1234 "}))
	assert.Equal(t, "Data Engineer", Key(model.Listing{Title: "  Data \t Engineer "}))
}

func TestSnapshot_DefaultsK(t *testing.T) {
	listings := titled("a", "b", "c", "d", "e", "f", "g")
	assert.Len(t, Snapshot(listings, 0), DefaultTopK)
	assert.Len(t, Snapshot(listings, 3), 3)
	assert.Len(t, Snapshot(listings[:2], 5), 2)
}

func TestBlobDigest_DisjointFromListingDigests(t *testing.T) {
	d := BlobDigest("Software Engineer")
	assert.True(t, IsBlob(d))
	assert.False(t, IsBlob(Digest(titled("Software Engineer"), 5)))
	assert.NotEqual(t, d, Digest(titled("Software Engineer"), 5))
}

func TestFromExtraction(t *testing.T) {
	t.Run("digest with listings", func(t *testing.T) {
		sig, err := FromExtraction(model.Extraction{Listings: withIDs("A", "B")}, model.ModeDigest, 5)
		require.NoError(t, err)
		assert.Equal(t, model.ModeDigest, sig.Mode)
		assert.Equal(t, Digest(withIDs("A", "B"), 5), sig.Digest)
	})

	t.Run("digest empty marker", func(t *testing.T) {
		sig, err := FromExtraction(model.Extraction{Empty: true}, model.ModeDigest, 5)
		require.NoError(t, err)
		assert.Equal(t, EmptySentinel, sig.Digest)
	})

	t.Run("digest blob", func(t *testing.T) {
		sig, err := FromExtraction(model.Extraction{Blob: "page text"}, model.ModeDigest, 5)
		require.NoError(t, err)
		assert.Equal(t, BlobDigest("page text"), sig.Digest)
	})

	t.Run("set collects every identifier", func(t *testing.T) {
		listings := withIDs("C", "A", "B", "F", "E", "D", "G")
		sig, err := FromExtraction(model.Extraction{Listings: listings}, model.ModeSet, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G"}, sig.IDs)
	})

	t.Run("set rejects blob", func(t *testing.T) {
		_, err := FromExtraction(model.Extraction{Blob: "page"}, model.ModeSet, 5)
		assert.ErrorIs(t, err, model.ErrAmbiguous)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := FromExtraction(model.Extraction{}, model.Mode("bogus"), 5)
		assert.Error(t, err)
	})
}
