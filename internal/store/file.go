package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/amishk599/jobpulse/internal/model"
)

const (
	digestExt = ".digest"
	idsExt    = ".ids"
	lockExt   = ".lock"
)

// FileStore keeps one small text file per source under a directory:
// <source>.digest holds a single digest line, <source>.ids one identifier per
// line. The extension records the mode. Writes go to a temp file that is then
// renamed over the target, so a crash never leaves a torn file. Lock takes a
// flock on <source>.lock so overlapping processes serialize per source.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var (
	_ Store             = (*FileStore)(nil)
	_ model.StateLocker = (*FileStore)(nil)
)

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "state"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(source, ext string) string {
	return filepath.Join(s.dir, SafeName(source)+ext)
}

// Lock holds source exclusively across processes until unlock is called. It
// returns model.ErrStateLocked when another holder has it.
func (s *FileStore) Lock(_ context.Context, source string) (func() error, error) {
	unlock, err := lockFile(s.path(source, lockExt))
	if err != nil {
		return nil, fmt.Errorf("locking state for %s: %w", source, err)
	}
	return unlock, nil
}

// Get reads the stored signal for source.
func (s *FileStore) Get(_ context.Context, source string) (model.Signal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(SafeName(source))
}

func (s *FileStore) read(name string) (model.Signal, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+digestExt))
	switch {
	case err == nil:
		return model.DigestSignal(strings.TrimSpace(string(data))), true, nil
	case !errors.Is(err, fs.ErrNotExist):
		return model.Signal{}, false, fmt.Errorf("reading digest for %s: %w", name, err)
	}

	data, err = os.ReadFile(filepath.Join(s.dir, name+idsExt))
	switch {
	case err == nil:
		return model.SetSignal(splitLines(data)), true, nil
	case errors.Is(err, fs.ErrNotExist):
		return model.Signal{}, false, nil
	}
	return model.Signal{}, false, fmt.Errorf("reading ids for %s: %w", name, err)
}

// Put replaces the stored signal for source and removes any file left over
// from the other mode.
func (s *FileStore) Put(_ context.Context, source string, sig model.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target, stale string
	var buf bytes.Buffer
	switch sig.Mode {
	case model.ModeDigest:
		target, stale = s.path(source, digestExt), s.path(source, idsExt)
		buf.WriteString(sig.Digest)
		buf.WriteByte('\n')
	case model.ModeSet:
		target, stale = s.path(source, idsExt), s.path(source, digestExt)
		for _, id := range sig.IDs {
			buf.WriteString(id)
			buf.WriteByte('\n')
		}
	default:
		return fmt.Errorf("writing state for %s: unknown mode %q", source, sig.Mode)
	}

	if err := writeAtomic(target, buf.Bytes()); err != nil {
		return fmt.Errorf("writing state for %s: %w", source, err)
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale state for %s: %w", source, err)
	}
	return nil
}

// List returns every stored source, sorted by name.
func (s *FileStore) List(_ context.Context) ([]model.StateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing state dir: %w", err)
	}
	var out []model.StateRecord
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != digestExt && ext != idsExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		sig, ok, err := s.read(name)
		if err != nil {
			return nil, err
		}
		if !ok || (sig.Mode == model.ModeDigest) != (ext == digestExt) {
			continue
		}
		rec := model.StateRecord{Source: name, Signal: sig}
		if info, err := e.Info(); err == nil {
			rec.UpdatedAt = info.ModTime()
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

// Delete forgets source. The next poll is a first run again.
func (s *FileStore) Delete(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ext := range []string{digestExt, idsExt} {
		if err := os.Remove(s.path(source, ext)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting state for %s: %w", source, err)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// writeAtomic writes data to a temp file in the target's directory and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func splitLines(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}
