// Package store persists the last-seen signal of each source.
package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/amishk599/jobpulse/internal/model"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store is a StateStore that also supports operator tooling.
type Store interface {
	model.StateStore
	model.StateAdmin
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string // file backend
	Path    string // sqlite backend
	DSN     string // postgres backend
}

// Open returns the backend described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DSN)
	}
	return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName maps a source name to a string usable as a file name.
func SafeName(source string) string {
	return unsafeName.ReplaceAllString(source, "_")
}
