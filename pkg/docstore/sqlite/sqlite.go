// Package sqlite provides a [docstore.Store] in a local SQLite file, for
// single-user and offline installs. It uses the pure-Go modernc.org/sqlite
// driver, so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

// Schema is the SQL DDL for the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    path       TEXT    PRIMARY KEY,
    body       TEXT    NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

var (
	_ docstore.Versioned = (*Store)(nil)
	_ docstore.Pinger    = (*Store)(nil)
)

// Store is a [docstore.Versioned] backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies [Schema].
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping implements [docstore.Pinger].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite docstore: ping: %w: %w", docstore.ErrUnavailable, err)
	}
	return nil
}

// ReadCollection implements [docstore.Store].
func (s *Store) ReadCollection(ctx context.Context, path string) (json.RawMessage, error) {
	doc, _, err := s.ReadVersioned(ctx, path)
	return doc, err
}

// ReadVersioned implements [docstore.Versioned].
func (s *Store) ReadVersioned(ctx context.Context, path string) (json.RawMessage, docstore.Version, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, "", err
	}
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT body, version FROM documents WHERE path = ?`, path,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("sqlite docstore: read %s: %w", path, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("sqlite docstore: read %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	return json.RawMessage(body), docstore.Version(strconv.FormatInt(version, 10)), nil
}

// WriteCollection implements [docstore.Store].
func (s *Store) WriteCollection(ctx context.Context, path string, doc json.RawMessage) error {
	if err := docstore.CheckWrite(path, doc); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, body, version) VALUES (?, ?, 1)
		ON CONFLICT (path) DO UPDATE
		SET body = excluded.body,
		    version = documents.version + 1,
		    updated_at = CURRENT_TIMESTAMP`,
		path, string(doc))
	if err != nil {
		return fmt.Errorf("sqlite docstore: write %s: %w: %w", path, docstore.ErrUnavailable, err)
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
		res sql.Result
		err error
	)
	if expected == "" {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (path, body, version) VALUES (?, ?, 1) ON CONFLICT (path) DO NOTHING`,
			path, string(doc))
	} else {
		v, perr := strconv.ParseInt(string(expected), 10, 64)
		if perr != nil {
			return fmt.Errorf("sqlite docstore: write %s: bad version %q: %w", path, expected, perr)
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE documents
			SET body = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE path = ? AND version = ?`,
			string(doc), path, v)
	}
	if err != nil {
		return fmt.Errorf("sqlite docstore: write %s: %w: %w", path, docstore.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite docstore: write %s: rows affected: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite docstore: write %s: %w", path, docstore.ErrConflict)
	}
	return nil
}
