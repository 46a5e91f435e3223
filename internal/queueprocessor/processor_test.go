package queueprocessor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/dbstore"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/models"
)

func newTestStore(t *testing.T) *catalogstore.Store {
	t.Helper()
	db, err := dbstore.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return catalogstore.New(db, logging.NewDefault("t"))
}

func waitForEvent(t *testing.T, ch chan models.StatusEvent, status models.QueueStatus, timeout time.Duration) models.StatusEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-ch:
			if ev.Status == status {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status event %s", status)
		}
	}
}

func TestProcessor_CompletesItemSuccessfully(t *testing.T) {
	store := newTestStore(t)
	w, err := store.Upsert(&models.Website{URL: "https://a.example", CadenceMin: 60, IsActive: true, CrawlEnabled: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	id, err := store.Enqueue(w.ID, models.CheckCrawl, "alice")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	broadcast := NewBroadcaster()
	sub := broadcast.Subscribe()
	defer broadcast.Unsubscribe(sub)

	dispatch := func(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) (interface{}, error) {
		if !isManual {
			t.Fatal("expected manual dispatch")
		}
		return map[string]interface{}{"pages": 3}, nil
	}

	proc := New(store, dispatch, &sync.Mutex{}, broadcast, logging.NewDefault("t"))
	if err := proc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer proc.Stop()

	waitForEvent(t, sub, models.QueueCompleted, 5*time.Second)

	pending, err := store.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, item := range pending {
		if item.ID == id {
			t.Fatal("completed item should not remain pending")
		}
	}
}

func TestProcessor_TranslatesDispatchErrorToUserMessage(t *testing.T) {
	store := newTestStore(t)
	w, _ := store.Upsert(&models.Website{URL: "https://b.example", CadenceMin: 60, IsActive: true, VisualEnabled: true})
	if _, err := store.Enqueue(w.ID, models.CheckVisual, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	broadcast := NewBroadcaster()
	sub := broadcast.Subscribe()
	defer broadcast.Unsubscribe(sub)

	dispatch := func(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) (interface{}, error) {
		return nil, errors.New("no baseline exists for this page")
	}

	proc := New(store, dispatch, &sync.Mutex{}, broadcast, logging.NewDefault("t"))
	if err := proc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer proc.Stop()

	ev := waitForEvent(t, sub, models.QueueFailed, 5*time.Second)
	if ev.Error != "Please first create baselines, then do the visual check." {
		t.Fatalf("unexpected translated message: %q", ev.Error)
	}
}

func TestProcessor_MissingWebsiteFailsCleanly(t *testing.T) {
	store := newTestStore(t)
	w, _ := store.Upsert(&models.Website{URL: "https://c.example", CadenceMin: 60, IsActive: true, CrawlEnabled: true})
	if _, err := store.Enqueue(w.ID, models.CheckCrawl, "alice"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Delete(w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	broadcast := NewBroadcaster()
	sub := broadcast.Subscribe()
	defer broadcast.Unsubscribe(sub)

	dispatchCalled := false
	dispatch := func(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) (interface{}, error) {
		dispatchCalled = true
		return nil, nil
	}

	proc := New(store, dispatch, &sync.Mutex{}, broadcast, logging.NewDefault("t"))
	if err := proc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer proc.Stop()

	waitForEvent(t, sub, models.QueueFailed, 5*time.Second)
	if dispatchCalled {
		t.Fatal("dispatcher should not be invoked for a deleted website")
	}
}

func TestStart_ClearsOrphanedProcessingRows(t *testing.T) {
	store := newTestStore(t)
	w, _ := store.Upsert(&models.Website{URL: "https://d.example", CadenceMin: 60, IsActive: true, CrawlEnabled: true})
	id, _ := store.Enqueue(w.ID, models.CheckCrawl, "alice")
	if _, err := store.DequeueNext(); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	broadcast := NewBroadcaster()
	dispatch := func(context.Context, *models.Website, models.CheckConfig, bool) (interface{}, error) { return nil, nil }
	proc := New(store, dispatch, &sync.Mutex{}, broadcast, logging.NewDefault("t"))
	if err := proc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer proc.Stop()

	time.Sleep(100 * time.Millisecond)
	pending, err := store.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, item := range pending {
		if item.ID == id {
			t.Fatal("expected orphaned processing row cleared at startup")
		}
	}
}

func TestTranslateError_KeywordMatching(t *testing.T) {
	cases := map[string]string{
		"dial tcp: lookup example.com: no such host": "Domain could not be found.",
		"x509: certificate signed by unknown authority": "SSL certificate issue detected.",
		"received 404 not found":                        "Page not found.",
		"context deadline exceeded (timeout)":            "Unable to connect — the request timed out.",
	}
	for input, want := range cases {
		if got := translateError(errors.New(input)); got != want {
			t.Errorf("translateError(%q) = %q, want %q", input, got, want)
		}
	}
}
