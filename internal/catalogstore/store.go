// Package catalogstore is the single-writer, multi-reader Catalog Store
// (spec.md §4.1): the durable record of websites, their check cadence and
// feature flags, their baselines, and the manual-check queue.
package catalogstore

import (
	"database/sql"
	"time"

	"github.com/mbrown1837/webmonitor/internal/logging"
)

// DeletionHook is called after a website and everything owned by it has
// been removed from the catalog. The Scheduler Core registers exactly one
// of these at construction time so deletion can drop the corresponding
// job without the Catalog Store holding a reference back to the scheduler
// (SPEC_FULL.md / spec.md §9: "one-way push").
type DeletionHook func(websiteID string)

// Store is the Catalog Store.
type Store struct {
	db     *sql.DB
	cache  websiteCache
	log    *logging.Logger
	onDelete []DeletionHook
}

// Option configures a Store at construction.
type Option func(*Store)

// WithRedisCache backs the website cache with Redis instead of the
// default in-process LRU (SPEC_FULL.md §4.1).
func WithRedisCache(addr string) Option {
	return func(s *Store) {
		s.cache = newRedisWebsiteCache(addr, "webmon", 5*time.Minute)
	}
}

// New wraps an already-migrated *sql.DB (shared with the History Store,
// spec.md §6) as a Catalog Store.
func New(db *sql.DB, log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:    db,
		cache: newMemoryCache(5*time.Minute, 500),
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnWebsiteDeleted registers a hook invoked synchronously at the end of a
// successful Delete. Construction-time wiring only; there is no
// unregister, matching the single long-lived Scheduler Core this process
// hosts (spec.md §9).
func (s *Store) OnWebsiteDeleted(hook DeletionHook) {
	s.onDelete = append(s.onDelete, hook)
}

func (s *Store) audit(actor, action, entityID string) {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (actor, action, entity_id, at) VALUES (?, ?, ?, ?)`,
		actor, action, entityID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil && s.log != nil {
		s.log.Warn("audit insert failed", map[string]interface{}{"error": err, "action": action})
	}
}
