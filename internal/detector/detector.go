// Package detector compares a source's current signal with its stored one and
// decides whether anything changed.
package detector

import (
	"context"
	"fmt"
	"slices"

	"github.com/amishk599/jobpulse/internal/model"
)

// Outcome is the verdict of one observation.
type Outcome int

const (
	// FirstRun means no prior state existed. The signal is stored and nothing
	// is announced.
	FirstRun Outcome = iota
	Unchanged
	Changed
)

func (o Outcome) String() string {
	switch o {
	case FirstRun:
		return "first_run"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result describes one observation.
type Result struct {
	Outcome  Outcome
	Previous model.Signal // zero on FirstRun
	Current  model.Signal // what is stored after the observation
	NewIDs   []string     // set mode: identifiers not seen before, sorted
}

// Detector applies the change rules of both modes on top of a StateStore.
type Detector struct {
	store model.StateStore
}

// New creates a Detector backed by store.
func New(store model.StateStore) *Detector {
	return &Detector{store: store}
}

// Observe compares sig with the stored signal for source and persists it when
// it is new or changed. Observing the same signal twice is a no-op the second
// time.
//
// When the store is a model.StateLocker the source is locked for the whole
// read-modify-write, so overlapping processes cannot lose each other's writes.
func (d *Detector) Observe(ctx context.Context, source string, sig model.Signal) (res Result, err error) {
	locker, ok := d.store.(model.StateLocker)
	if !ok {
		return d.observe(ctx, source, sig)
	}
	unlock, lerr := locker.Lock(ctx, source)
	if lerr != nil {
		return Result{}, &model.StateError{Op: "lock " + source, Err: lerr}
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = &model.StateError{Op: "unlock " + source, Err: uerr}
		}
	}()
	return d.observe(ctx, source, sig)
}

func (d *Detector) observe(ctx context.Context, source string, sig model.Signal) (Result, error) {
	prev, ok, err := d.store.Get(ctx, source)
	if err != nil {
		return Result{}, &model.StateError{Op: "get " + source, Err: err}
	}

	if !ok {
		if err := d.put(ctx, source, sig); err != nil {
			return Result{}, err
		}
		return Result{Outcome: FirstRun, Current: sig}, nil
	}

	if prev.Mode != sig.Mode {
		return Result{Previous: prev}, fmt.Errorf("%s: stored %s, configured %s: %w",
			source, prev.Mode, sig.Mode, model.ErrModeMismatch)
	}

	switch sig.Mode {
	case model.ModeDigest:
		if prev.Digest == sig.Digest {
			return Result{Outcome: Unchanged, Previous: prev, Current: prev}, nil
		}
		if err := d.put(ctx, source, sig); err != nil {
			return Result{}, err
		}
		return Result{Outcome: Changed, Previous: prev, Current: sig}, nil

	case model.ModeSet:
		fresh := newIDs(prev.IDs, sig.IDs)
		if len(fresh) == 0 {
			return Result{Outcome: Unchanged, Previous: prev, Current: prev}, nil
		}
		merged := model.SetSignal(append(slices.Clone(prev.IDs), sig.IDs...))
		if err := d.put(ctx, source, merged); err != nil {
			return Result{}, err
		}
		return Result{Outcome: Changed, Previous: prev, Current: merged, NewIDs: fresh}, nil
	}

	return Result{}, fmt.Errorf("%s: unknown mode %q", source, sig.Mode)
}

func (d *Detector) put(ctx context.Context, source string, sig model.Signal) error {
	if err := d.store.Put(ctx, source, sig); err != nil {
		return &model.StateError{Op: "put " + source, Err: err}
	}
	return nil
}

// newIDs returns the members of current missing from stored. Both are sorted.
func newIDs(stored, current []string) []string {
	var fresh []string
	for _, id := range current {
		if _, found := slices.BinarySearch(stored, id); !found {
			fresh = append(fresh, id)
		}
	}
	return fresh
}
