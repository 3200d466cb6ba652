package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobpulse/internal/model"
)

// SQLiteStore keeps source signals in a SQLite database. Digest signals live
// in source_state; set-mode identifiers live in seen_ids with the time each
// was first seen.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "jobpulse.db"
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS source_state (
			source     TEXT PRIMARY KEY,
			mode       TEXT NOT NULL,
			digest     TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seen_ids (
			source     TEXT NOT NULL,
			id         TEXT NOT NULL,
			first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (source, id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the stored signal for source.
func (s *SQLiteStore) Get(ctx context.Context, source string) (model.Signal, bool, error) {
	var mode, digest string
	err := s.db.QueryRowContext(ctx,
		"SELECT mode, digest FROM source_state WHERE source = ?", source,
	).Scan(&mode, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Signal{}, false, nil
	}
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("reading state for %s: %w", source, err)
	}

	if model.Mode(mode) == model.ModeDigest {
		return model.DigestSignal(digest), true, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM seen_ids WHERE source = ? ORDER BY id", source)
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("reading ids for %s: %w", source, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.Signal{}, false, fmt.Errorf("scanning id for %s: %w", source, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return model.Signal{}, false, fmt.Errorf("reading ids for %s: %w", source, err)
	}
	return model.SetSignal(ids), true, nil
}

// Put replaces the stored signal for source in one transaction. Identifiers
// already present keep their first_seen time.
func (s *SQLiteStore) Put(ctx context.Context, source string, sig model.Signal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state write for %s: %w", source, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO source_state (source, mode, digest, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (source) DO UPDATE SET mode = excluded.mode, digest = excluded.digest, updated_at = excluded.updated_at`,
		source, string(sig.Mode), sig.Digest, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing state for %s: %w", source, err)
	}

	ids, err := json.Marshal(sig.IDs)
	if err != nil {
		return fmt.Errorf("encoding ids for %s: %w", source, err)
	}
	if sig.Mode != model.ModeSet {
		ids = []byte("[]")
	}
	_, err = tx.ExecContext(ctx,
		"DELETE FROM seen_ids WHERE source = ? AND id NOT IN (SELECT value FROM json_each(?))",
		source, string(ids),
	)
	if err != nil {
		return fmt.Errorf("trimming ids for %s: %w", source, err)
	}

	if sig.Mode == model.ModeSet {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO seen_ids (source, id) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("preparing id insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range sig.IDs {
			if _, err := stmt.ExecContext(ctx, source, id); err != nil {
				return fmt.Errorf("marking id %s as seen for %s: %w", id, source, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state for %s: %w", source, err)
	}
	return nil
}

// List returns every stored source, sorted by name.
func (s *SQLiteStore) List(ctx context.Context) ([]model.StateRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, updated_at FROM source_state ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("listing state: %w", err)
	}
	type row struct {
		source  string
		updated time.Time
	}
	var found []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.source, &r.updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning state row: %w", err)
		}
		found = append(found, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing state: %w", err)
	}

	out := make([]model.StateRecord, 0, len(found))
	for _, r := range found {
		sig, _, err := s.Get(ctx, r.source)
		if err != nil {
			return nil, err
		}
		out = append(out, model.StateRecord{Source: r.source, Signal: sig, UpdatedAt: r.updated})
	}
	return out, nil
}

// Delete forgets source and its identifiers.
func (s *SQLiteStore) Delete(ctx context.Context, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete for %s: %w", source, err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		"DELETE FROM seen_ids WHERE source = ?",
		"DELETE FROM source_state WHERE source = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, source); err != nil {
			return fmt.Errorf("deleting state for %s: %w", source, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
