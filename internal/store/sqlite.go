package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/ragqa/internal/rag"
)

// SQLiteStore is a rag.FragmentStore backed by a local SQLite database.
// Fragment positions are stored explicitly so the order and the 1:1
// correspondence with the rebuilt index survive restarts.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the fragment database.
// It resolves to ~/.ragqa/fragments.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragqa")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "fragments.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// modernc.org/sqlite applies each _pragma on every new connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// from being split across connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS fragments (
    position     INTEGER PRIMARY KEY,   -- 0-based FragmentID
    text         TEXT    NOT NULL CHECK(length(text) > 0),
    source       TEXT    NOT NULL,
    created_at   INTEGER NOT NULL       -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS fragments_source ON fragments(source);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append stores a fragment at the next position inside a transaction.
func (s *SQLiteStore) Append(ctx context.Context, text, source string) (rag.FragmentID, error) {
	f, err := newFragment(text, source)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&next); err != nil {
		return 0, fmt.Errorf("store: next position: %w", err)
	}

	const q = `INSERT INTO fragments (position, text, source, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, next, f.Text, f.Source, time.Now().Unix()); err != nil {
		return 0, fmt.Errorf("store: append: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit append: %w", err)
	}
	return rag.FragmentID(next), nil
}

// Get returns the fragment at id.
func (s *SQLiteStore) Get(ctx context.Context, id rag.FragmentID) (rag.Fragment, error) {
	const q = `SELECT text, source FROM fragments WHERE position = ?`
	var f rag.Fragment
	err := s.db.QueryRowContext(ctx, q, int64(id)).Scan(&f.Text, &f.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return rag.Fragment{}, fmt.Errorf("store: get %d: %w", id, rag.ErrNotFound)
	}
	if err != nil {
		return rag.Fragment{}, fmt.Errorf("store: get %d: %w", id, err)
	}
	return f, nil
}

// All returns every fragment ordered by position.
func (s *SQLiteStore) All(ctx context.Context) ([]rag.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text, source FROM fragments ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: all: %w", err)
	}
	defer rows.Close()

	var out []rag.Fragment
	for rows.Next() {
		var f rag.Fragment
		if err := rows.Scan(&f.Text, &f.Source); err != nil {
			return nil, fmt.Errorf("store: all scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: all rows: %w", err)
	}
	return out, nil
}

// Len returns the number of stored fragments.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: len: %w", err)
	}
	return n, nil
}

// HasSource reports whether a fragment with the given source label exists.
func (s *SQLiteStore) HasSource(ctx context.Context, source string) (bool, error) {
	var ok bool
	const q = `SELECT EXISTS(SELECT 1 FROM fragments WHERE source = ?)`
	if err := s.db.QueryRowContext(ctx, q, strings.TrimSpace(source)).Scan(&ok); err != nil {
		return false, fmt.Errorf("store: has source: %w", err)
	}
	return ok, nil
}

// Ping checks the database connection. It satisfies server.Pinger.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
