package dbstore

import (
	"database/sql"
	"fmt"
	"sort"
)

// migration is one additive schema step, grounded on the teacher's
// Migration struct (backend/database/migrate.go) minus the down-migration
// machinery this append-mostly schema never needs.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// registry lists every migration in order. New columns/tables are always
// appended here, never edited in place, so a deployed database's applied
// set only ever grows (spec.md §4.1 "Schema evolution").
var registry = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
CREATE TABLE IF NOT EXISTS websites (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	cadence_minutes INTEGER NOT NULL DEFAULT 60,
	is_active INTEGER NOT NULL DEFAULT 1,
	tags TEXT NOT NULL DEFAULT '[]',
	recipients TEXT NOT NULL DEFAULT '[]',
	crawl_enabled INTEGER NOT NULL DEFAULT 1,
	visual_enabled INTEGER NOT NULL DEFAULT 1,
	blur_enabled INTEGER NOT NULL DEFAULT 1,
	performance_enabled INTEGER NOT NULL DEFAULT 1,
	full_check_enabled INTEGER NOT NULL DEFAULT 0,
	max_crawl_depth INTEGER NOT NULL DEFAULT 3,
	render_delay_seconds INTEGER NOT NULL DEFAULT 2,
	visual_diff_threshold_percent REAL NOT NULL DEFAULT 5.0,
	capture_subpages INTEGER NOT NULL DEFAULT 1,
	exclude_page_keywords TEXT NOT NULL DEFAULT '[]',
	baselines TEXT NOT NULL DEFAULT '{}',
	last_checked_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS manual_check_queue (
	id TEXT PRIMARY KEY,
	website_id TEXT NOT NULL,
	check_type TEXT NOT NULL,
	status TEXT NOT NULL,
	priority INTEGER NOT NULL,
	requested_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT,
	error_message TEXT NOT NULL DEFAULT '',
	result_payload TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_queue_active_lookup
	ON manual_check_queue(website_id, check_type, status);

CREATE INDEX IF NOT EXISTS idx_queue_dequeue_order
	ON manual_check_queue(status, priority DESC, created_at ASC);

CREATE TABLE IF NOT EXISTS check_history (
	id TEXT PRIMARY KEY,
	website_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL,
	is_manual INTEGER NOT NULL,
	is_change_report INTEGER NOT NULL DEFAULT 0,
	crawl_json TEXT,
	visual_json TEXT,
	blur_json TEXT,
	performance_json TEXT,
	failure_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_history_website_time
	ON check_history(website_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	at TEXT NOT NULL
);
`,
	},
}

// Migrate creates the tracking table if absent and applies every
// migration whose version has not yet been recorded.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	pending := make([]migration, 0, len(registry))
	for _, m := range registry {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
