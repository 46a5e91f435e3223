package historystore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mbrown1837/webmonitor/internal/dbstore"
	"github.com/mbrown1837/webmonitor/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := dbstore.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestAppend_StampsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	rec := &models.CheckRecord{
		WebsiteID: "site-1",
		Status:    models.StatusCompleted,
		Crawl:     &models.CrawlStats{PagesCrawled: 4},
	}
	saved, err := s.Append(rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	if saved.Timestamp.IsZero() {
		t.Fatal("expected stamped timestamp")
	}

	fetched, err := s.Get(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Crawl == nil || fetched.Crawl.PagesCrawled != 4 {
		t.Fatalf("expected crawl payload round-tripped, got %+v", fetched.Crawl)
	}
}

func TestListByWebsite_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-1", Status: models.StatusCompleted, Timestamp: older}); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-1", Status: models.StatusCompleted, Timestamp: newer}); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	recs, err := s.ListByWebsite("site-1", Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if !recs[0].Timestamp.After(recs[1].Timestamp) {
		t.Fatalf("expected newest-first ordering, got %v then %v", recs[0].Timestamp, recs[1].Timestamp)
	}
}

func TestLatest_ReturnsNilWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Latest("unknown-site")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
}

func TestDeleteForWebsite_RemovesAllRows(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-1", Status: models.StatusCompleted}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-2", Status: models.StatusCompleted}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.DeleteForWebsite("site-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, err := s.ListByWebsite("site-1", Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected site-1 history gone, got %d rows", len(remaining))
	}
	other, err := s.ListByWebsite("site-2", Filter{})
	if err != nil {
		t.Fatalf("list site-2: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("expected site-2 history untouched, got %d rows", len(other))
	}
}

func TestPruneOlderThan_RemovesOnlyStaleRows(t *testing.T) {
	s := newTestStore(t)
	stale := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-1", Status: models.StatusCompleted, Timestamp: stale}); err != nil {
		t.Fatalf("append stale: %v", err)
	}
	if _, err := s.Append(&models.CheckRecord{WebsiteID: "site-1", Status: models.StatusCompleted, Timestamp: fresh}); err != nil {
		t.Fatalf("append fresh: %v", err)
	}

	n, err := s.PruneOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row pruned, got %d", n)
	}
}
