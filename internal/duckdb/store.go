// Package duckdb exports decoded site records to a DuckDB database for
// downstream SQL analysis. Sites are written append-only through the
// Appender API; an export_meta table fingerprints the source file so
// unchanged inputs can skip re-export.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding exported sites.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist. No primary key on
// sites: an input may legitimately carry the same position twice.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sites (
		chrom VARCHAR,
		pos BIGINT,
		end_pos BIGINT,
		id VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		qual FLOAT,
		filter VARCHAR,
		n_allele INTEGER,
		n_sample INTEGER
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS export_meta (
		path VARCHAR,
		size BIGINT,
		mod_time_ns BIGINT,
		exported_at TIMESTAMP,
		records BIGINT
	)`)
	return err
}
