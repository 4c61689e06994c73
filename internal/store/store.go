// Package store persists documents and their section trees in SQLite.
//
// Writes go through optimistic locking: every row carries a version counter
// that updates check-and-increment in the WHERE clause, so a concurrent
// writer surfaces as ErrStaleVersion instead of a lost update. Section
// batches for one processing episode are written in a single transaction,
// so a partial hierarchy is never observable.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStaleVersion is returned when an update loses an optimistic-lock race.
var ErrStaleVersion = errors.New("store: stale version")

// Store wraps the SQLite database holding documents and sections.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with production pragmas and
// bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenTemp opens a throwaway database under the test's temp dir.
func OpenTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open temp store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id                      TEXT PRIMARY KEY,
    filename                TEXT NOT NULL,
    original_filename       TEXT NOT NULL,
    file_size               INTEGER NOT NULL,
    mime_type               TEXT NOT NULL,
    processing_status       TEXT NOT NULL DEFAULT 'PENDING',
    uploaded_at             TEXT NOT NULL,
    processing_started_at   TEXT,
    processing_completed_at TEXT,
    error_message           TEXT,
    metadata                TEXT NOT NULL DEFAULT '{}',
    created_at              TEXT NOT NULL,
    updated_at              TEXT NOT NULL,
    version                 INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_documents_status      ON documents (processing_status);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at);

CREATE TABLE IF NOT EXISTS document_sections (
    id                TEXT PRIMARY KEY,
    document_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    parent_section_id TEXT REFERENCES document_sections(id) ON DELETE CASCADE,
    section_type      TEXT NOT NULL,
    title             TEXT,
    content           TEXT NOT NULL,
    hierarchy_path    TEXT,
    hierarchy_level   INTEGER NOT NULL,
    section_order     INTEGER NOT NULL,
    word_count        INTEGER NOT NULL,
    char_count        INTEGER NOT NULL,
    page_start        INTEGER,
    page_end          INTEGER,
    index_ref         TEXT,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL,
    version           INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_sections_document  ON document_sections (document_id, section_order);
CREATE INDEX IF NOT EXISTS idx_sections_parent    ON document_sections (parent_section_id);
CREATE INDEX IF NOT EXISTS idx_sections_type      ON document_sections (document_id, section_type);
CREATE INDEX IF NOT EXISTS idx_sections_level     ON document_sections (document_id, hierarchy_level);
CREATE INDEX IF NOT EXISTS idx_sections_index_ref ON document_sections (index_ref);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Time columns are RFC 3339 TEXT.

func timeStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTimeStr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeStr(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalMeta(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(raw), nil
}

func unmarshalMeta(raw string) (map[string]any, error) {
	m := map[string]any{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
