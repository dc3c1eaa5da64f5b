// Package docstore is a revisioned document store on SQLite: per-document
// atomic put/get/remove with optimistic concurrency, id range scans, and
// named secondary views that are caught up incrementally on query.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS docs (
	id      TEXT PRIMARY KEY,
	rev     TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	body    TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_docs_seq ON docs(seq);

CREATE TABLE IF NOT EXISTS view_rows (
	view   TEXT NOT NULL,
	key    TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	PRIMARY KEY (view, key, doc_id)
);

CREATE INDEX IF NOT EXISTS idx_view_rows_doc ON view_rows(view, doc_id);

CREATE TABLE IF NOT EXISTS view_state (
	view      TEXT PRIMARY KEY,
	signature TEXT NOT NULL,
	last_seq  INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps a sql.DB with document operations.
type Store struct {
	conn *sql.DB

	mu    sync.RWMutex
	views map[string]View
}

// Open opens (or creates) the SQLite database at dsn and applies the schema.
// Transactions take the write lock up front so that a revision check and
// the write it guards cannot interleave with another writer.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("docstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply schema: %w", err)
	}
	return &Store{conn: conn, views: make(map[string]View)}, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
