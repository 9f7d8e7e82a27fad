// Package store persists event samples, reference samples and analysis
// outputs in a SQLite database.
//
// The schema is owned by the embedded golang-migrate migrations; Open
// brings a database up to the latest version before returning.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection pool.
type Store struct {
	db *sql.DB
}

// pragmas applied to every connection opened by Open.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the database at path, applies pragmas and
// runs all pending migrations.
func Open(path string) (*Store, error) {
	s, err := OpenWithoutMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// connPragmas are per-connection settings, so they go in the DSN and the
// driver applies them to every pooled connection.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

// OpenWithoutMigrate opens the database and applies pragmas but leaves the
// schema untouched. Used by migration tooling.
func OpenWithoutMigrate(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?"+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
