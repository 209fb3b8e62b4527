// Package postgres provides a [docstore.Store] backed by a single PostgreSQL
// table holding one row per document.
//
// Bodies are stored in a json (not jsonb) column so the member order of each
// document survives a round trip. Every write bumps an integer revision, which
// backs the [docstore.Versioned] conditional write.
//
// Usage:
//
//	store, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

// Schema is the SQL DDL for the documents table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    path        TEXT        PRIMARY KEY,
    body        JSON        NOT NULL,
    version     BIGINT      NOT NULL DEFAULT 1,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	_ docstore.Versioned = (*Store)(nil)
	_ docstore.Pinger    = (*Store)(nil)
)

// Store is a [docstore.Versioned] backed by PostgreSQL. It is safe for
// concurrent use when the underlying DB is (a pool is).
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// New opens a connection pool to dsn, pings it and runs [Store.Migrate].
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres docstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres docstore: ping: %w", err)
	}
	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection or pool. The caller owns db and is
// responsible for calling [Store.Migrate].
func NewWithDB(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres docstore: migrate: %w", err)
	}
	return nil
}

// Close releases the pool opened by [New]. It is a no-op for stores created
// with [NewWithDB].
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping implements [docstore.Pinger].
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres docstore: ping: %w: %w", docstore.ErrUnavailable, err)
	}
	return nil
}

// ReadCollection implements [docstore.Store].
func (s *Store) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	doc, _, err := s.ReadVersioned(ctx, path)
	return doc, err
}

// ReadVersioned implements [docstore.Versioned]. An absent document has the
// empty version.
func (s *Store) ReadVersioned(ctx context.Context, path string) (json.RawMessage, docstore.Version, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, "", err
	}
	const query = `SELECT body::text, version FROM documents WHERE path = $1`

	var body string
	var version int64
	err := s.db.QueryRow(ctx, query, path).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("postgres docstore: read %s: %w", path, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("postgres docstore: read %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	return json.RawMessage(body), formatVersion(version), nil
}

// WriteCollection implements [docstore.Store].
func (s *Store) WriteCollection(ctx context.Context, path string, doc json.RawMessage) error {
	if err := docstore.CheckWrite(path, doc); err != nil {
		return err
	}
	const query = `
		INSERT INTO documents (path, body, version)
		VALUES ($1, $2::json, 1)
		ON CONFLICT (path) DO UPDATE
		SET body = EXCLUDED.body,
		    version = documents.version + 1,
		    updated_at = now()`

	if _, err := s.db.Exec(ctx, query, path, string(doc)); err != nil {
		return fmt.Errorf("postgres docstore: write %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	return nil
}

// WriteIfVersion implements [docstore.Versioned]. The empty version creates
// the document only if it does not exist yet.
func (s *Store) WriteIfVersion(ctx context.Context, path string, doc json.RawMessage, expected docstore.Version) error {
	if err := docstore.CheckWrite(path, doc); err != nil {
		return err
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if expected == "" {
		const query = `
			INSERT INTO documents (path, body, version)
			VALUES ($1, $2::json, 1)
			ON CONFLICT (path) DO NOTHING`
		tag, err = s.db.Exec(ctx, query, path, string(doc))
	} else {
		v, perr := strconv.ParseInt(string(expected), 10, 64)
		if perr != nil {
			return fmt.Errorf("postgres docstore: write %s: bad version %q: %w", path, expected, perr)
		}
		const query = `
			UPDATE documents
			SET body = $2::json, version = version + 1, updated_at = now()
			WHERE path = $1 AND version = $3`
		tag, err = s.db.Exec(ctx, query, path, string(doc), v)
	}
	if err != nil {
		return fmt.Errorf("postgres docstore: write %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres docstore: write %s: %w", path, docstore.ErrConflict)
	}
	return nil
}

func formatVersion(v int64) docstore.Version {
	return docstore.Version(strconv.FormatInt(v, 10))
}
