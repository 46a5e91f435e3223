package catalogstore

import (
	"path/filepath"
	"testing"

	"github.com/mbrown1837/webmonitor/internal/dbstore"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := dbstore.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, logging.NewDefault("catalogstore_test"))
}

func testWebsite() *models.Website {
	return &models.Website{
		URL:                "https://example.com",
		DisplayName:        "Example",
		CadenceMin:         60,
		IsActive:           true,
		Tags:               []string{"prod"},
		Recipients:         []string{"team@example.com"},
		CrawlEnabled:       true,
		VisualEnabled:      true,
		BlurEnabled:        true,
		PerformanceEnabled: true,
		MaxCrawlDepth:      3,
	}
}

func TestUpsert_CreatesAndPreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	w := testWebsite()

	saved, err := s.Upsert(w)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	firstCreatedAt := saved.CreatedAt

	saved.DisplayName = "Example Renamed"
	saved, err = s.Upsert(saved)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !saved.CreatedAt.Equal(firstCreatedAt) {
		t.Fatalf("created_at changed on update: got %v want %v", saved.CreatedAt, firstCreatedAt)
	}

	fetched, err := s.Get(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.DisplayName != "Example Renamed" {
		t.Fatalf("display name not persisted: got %q", fetched.DisplayName)
	}
}

func TestUpsert_RejectsZeroCadence(t *testing.T) {
	s := newTestStore(t)
	w := testWebsite()
	w.CadenceMin = 0

	if _, err := s.Upsert(w); err == nil {
		t.Fatal("expected error for zero cadence")
	}
}

func TestGet_UnknownReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("does-not-exist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_FiresRegisteredHooks(t *testing.T) {
	s := newTestStore(t)
	w, err := s.Upsert(testWebsite())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var hookCalledWith string
	s.OnWebsiteDeleted(func(id string) { hookCalledWith = id })

	if err := s.Delete(w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hookCalledWith != w.ID {
		t.Fatalf("hook called with %q, want %q", hookCalledWith, w.ID)
	}
	if _, err := s.Get(w.ID); err != ErrNotFound {
		t.Fatalf("expected website gone, got %v", err)
	}
}

func TestDelete_UnknownIDIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("never-existed"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}

func TestGetManualCheckConfig_RespectsDisabledFeature(t *testing.T) {
	s := newTestStore(t)
	w := testWebsite()
	w.VisualEnabled = false
	saved, _ := s.Upsert(w)

	cfg, err := s.GetManualCheckConfig(saved.ID, models.CheckVisual)
	if err != nil {
		t.Fatalf("get manual config: %v", err)
	}
	if cfg.Visual {
		t.Fatal("expected visual phase suppressed by disabled feature flag")
	}
}

func TestGetManualCheckConfig_BaselineAlwaysForcesVisual(t *testing.T) {
	s := newTestStore(t)
	w := testWebsite()
	w.VisualEnabled = false
	saved, _ := s.Upsert(w)

	cfg, err := s.GetManualCheckConfig(saved.ID, models.CheckBaseline)
	if err != nil {
		t.Fatalf("get manual config: %v", err)
	}
	if !cfg.Visual || !cfg.CreateBaseline {
		t.Fatalf("expected baseline request to force visual+create_baseline, got %+v", cfg)
	}
}

func TestGetAutomatedCheckConfig_FullCheckForcesAllPhases(t *testing.T) {
	s := newTestStore(t)
	w := testWebsite()
	w.CrawlEnabled = false
	w.FullCheckEnabled = true
	saved, _ := s.Upsert(w)

	cfg, err := s.GetAutomatedCheckConfig(saved.ID)
	if err != nil {
		t.Fatalf("get automated config: %v", err)
	}
	if !cfg.Crawl || !cfg.Visual || !cfg.Blur || !cfg.Performance {
		t.Fatalf("expected all phases forced on, got %+v", cfg)
	}
}

func TestUpdateBaselines_InvalidatesCache(t *testing.T) {
	s := newTestStore(t)
	saved, _ := s.Upsert(testWebsite())

	// warm the cache
	if _, err := s.Get(saved.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	baselines := map[string]models.Baseline{"/": {ImagePath: "snap/1/home.png"}}
	if err := s.UpdateBaselines(saved.ID, baselines, saved.UpdatedAt); err != nil {
		t.Fatalf("update baselines: %v", err)
	}

	fetched, err := s.Get(saved.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if len(fetched.Baselines) != 1 {
		t.Fatalf("expected 1 baseline, got %d", len(fetched.Baselines))
	}
}

func TestExcludesPage_CaseInsensitiveSubstring(t *testing.T) {
	w := &models.Website{ExcludePageKeywords: []string{"Checkout"}}
	if !ExcludesPage(w, "https://example.com/CHECKOUT/step1") {
		t.Fatal("expected keyword match to be case-insensitive")
	}
	if ExcludesPage(w, "https://example.com/about") {
		t.Fatal("unexpected exclusion")
	}
}
