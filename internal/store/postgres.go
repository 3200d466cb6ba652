package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobpulse/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobpulse_source_state (
	source     TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	digest     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS jobpulse_seen_ids (
	source     TEXT NOT NULL,
	id         TEXT NOT NULL,
	first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (source, id)
);`

// PostgresStore keeps source signals in PostgreSQL, for deployments where
// several hosts share one state.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ Store             = (*PostgresStore)(nil)
	_ model.StateLocker = (*PostgresStore)(nil)
)

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres state backend needs a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Lock takes a session-level advisory lock keyed by source on a dedicated
// connection, which is held until unlock releases it.
func (s *PostgresStore) Lock(ctx context.Context, source string) (func() error, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, source).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("locking state for %s: %w", source, err)
	}
	if !locked {
		conn.Release()
		return nil, fmt.Errorf("locking state for %s: %w", source, model.ErrStateLocked)
	}
	return func() error {
		defer conn.Release()
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, source); err != nil {
			return fmt.Errorf("unlocking state for %s: %w", source, err)
		}
		return nil
	}, nil
}

// Get returns the stored signal for source.
func (s *PostgresStore) Get(ctx context.Context, source string) (model.Signal, bool, error) {
	var mode, digest string
	err := s.pool.QueryRow(ctx,
		`SELECT mode, digest FROM jobpulse_source_state WHERE source = $1`, source,
	).Scan(&mode, &digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Signal{}, false, nil
	}
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("reading state for %s: %w", source, err)
	}
	if model.Mode(mode) == model.ModeDigest {
		return model.DigestSignal(digest), true, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM jobpulse_seen_ids WHERE source = $1 ORDER BY id`, source)
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("reading ids for %s: %w", source, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return model.Signal{}, false, fmt.Errorf("reading ids for %s: %w", source, err)
	}
	return model.SetSignal(ids), true, nil
}

// Put replaces the stored signal for source in one transaction.
func (s *PostgresStore) Put(ctx context.Context, source string, sig model.Signal) error {
	ids := sig.IDs
	if sig.Mode != model.ModeSet || ids == nil {
		ids = []string{}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO jobpulse_source_state (source, mode, digest, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (source) DO UPDATE SET mode = $2, digest = $3, updated_at = NOW()`,
			source, string(sig.Mode), sig.Digest,
		)
		if err != nil {
			return fmt.Errorf("writing state for %s: %w", source, err)
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM jobpulse_seen_ids WHERE source = $1 AND NOT (id = ANY($2))`,
			source, ids,
		)
		if err != nil {
			return fmt.Errorf("trimming ids for %s: %w", source, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO jobpulse_seen_ids (source, id)
			 SELECT $1, unnest($2::text[])
			 ON CONFLICT (source, id) DO NOTHING`,
			source, ids,
		)
		if err != nil {
			return fmt.Errorf("marking ids as seen for %s: %w", source, err)
		}
		return nil
	})
}

// List returns every stored source, sorted by name.
func (s *PostgresStore) List(ctx context.Context) ([]model.StateRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, updated_at FROM jobpulse_source_state ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing state: %w", err)
	}
	type row struct {
		Source    string
		UpdatedAt time.Time
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByPos[row])
	if err != nil {
		return nil, fmt.Errorf("listing state: %w", err)
	}

	out := make([]model.StateRecord, 0, len(found))
	for _, r := range found {
		sig, _, err := s.Get(ctx, r.Source)
		if err != nil {
			return nil, err
		}
		out = append(out, model.StateRecord{Source: r.Source, Signal: sig, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// Delete forgets source and its identifiers.
func (s *PostgresStore) Delete(ctx context.Context, source string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM jobpulse_seen_ids WHERE source = $1`, source); err != nil {
			return fmt.Errorf("deleting ids for %s: %w", source, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM jobpulse_source_state WHERE source = $1`, source); err != nil {
			return fmt.Errorf("deleting state for %s: %w", source, err)
		}
		return nil
	})
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
