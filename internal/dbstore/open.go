// Package dbstore owns the single SQLite connection shared by the
// Catalog Store and History Store (spec.md §6: "one embedded relational
// database file"). It applies additive-forward-compatible migrations on
// open, following the teacher's versioned-registry migration pattern
// (backend/database/migrate.go, backend/db/migrations/registry.go)
// rather than shelling out to an external migration tool.
package dbstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if necessary) the SQLite database at path, tunes
// it for a single-writer/multi-reader workload (spec.md §5), and applies
// every pending migration.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("dbstore: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("dbstore: open %s: %w", path, err)
	}
	// SQLite allows only one writer; a single connection avoids
	// SQLITE_BUSY races between goroutines inside this process, and the
	// store's own per-row transactions still serialize writers correctly.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbstore: ping %s: %w", path, err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbstore: migrate: %w", err)
	}

	return db, nil
}
