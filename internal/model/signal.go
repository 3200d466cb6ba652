package model

import (
	"fmt"
	"slices"
)

// Mode selects how a source's state is represented.
type Mode string

const (
	// ModeDigest stores a single hash over the top-K snapshot. Detects
	// additions, removals and reordering.
	ModeDigest Mode = "digest"
	// ModeSet stores every identifier ever seen. Only new identifiers count.
	ModeSet Mode = "set"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDigest, ModeSet:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeDigest, ModeSet)
}

// Signal is the persisted, comparable state of a source.
type Signal struct {
	Mode   Mode
	Digest string   // ModeDigest only
	IDs    []string // ModeSet only, sorted and de-duplicated
}

// DigestSignal returns a digest-mode signal.
func DigestSignal(digest string) Signal {
	return Signal{Mode: ModeDigest, Digest: digest}
}

// SetSignal returns a set-mode signal over ids. The input is not modified.
func SetSignal(ids []string) Signal {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return Signal{Mode: ModeSet, IDs: slices.Compact(out)}
}

// Equal reports whether two signals are the same state.
func (s Signal) Equal(o Signal) bool {
	if s.Mode != o.Mode {
		return false
	}
	if s.Mode == ModeSet {
		return slices.Equal(s.IDs, o.IDs)
	}
	return s.Digest == o.Digest
}

// String renders a short form for logs.
func (s Signal) String() string {
	if s.Mode == ModeSet {
		return fmt.Sprintf("set(%d ids)", len(s.IDs))
	}
	return s.Digest
}
