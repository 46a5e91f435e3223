package catalogstore

import (
	"testing"
	"time"

	"github.com/mbrown1837/webmonitor/internal/models"
)

func TestEnqueue_DedupesActiveRequest(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.Upsert(testWebsite())

	id1, err := s.Enqueue(w.ID, models.CheckFull, "alice")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	id2, err := s.Enqueue(w.ID, models.CheckFull, "bob")
	if err != ErrAlreadyQueued {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same queue id back, got %q vs %q", id1, id2)
	}
}

func TestEnqueue_UnknownWebsiteFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Enqueue("ghost", models.CheckFull, "alice"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDequeueNext_OrdersManualBeforeScheduled(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.Upsert(testWebsite())

	if _, err := s.EnqueueScheduled(w.ID, models.CheckCrawl); err != nil {
		t.Fatalf("enqueue scheduled: %v", err)
	}
	manualID, err := s.Enqueue(w.ID, models.CheckVisual, "alice")
	if err != nil {
		t.Fatalf("enqueue manual: %v", err)
	}

	item, err := s.DequeueNext()
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if item == nil {
		t.Fatal("expected an item")
	}
	if item.ID != manualID {
		t.Fatalf("expected manual request dequeued first, got %q want %q", item.ID, manualID)
	}
	if item.Status != models.QueueProcessing {
		t.Fatalf("expected claimed item marked processing, got %s", item.Status)
	}
}

func TestDequeueNext_EmptyQueueReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	item, err := s.DequeueNext()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item on empty queue, got %+v", item)
	}
}

func TestUpdateStatus_MarksTerminal(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.Upsert(testWebsite())
	id, _ := s.Enqueue(w.ID, models.CheckCrawl, "alice")
	if _, err := s.DequeueNext(); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	if err := s.UpdateStatus(id, models.QueueCompleted, "", `{"pages":3}`); err != nil {
		t.Fatalf("update status: %v", err)
	}

	pending, err := s.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, item := range pending {
		if item.ID == id {
			t.Fatal("completed item should not appear in pending list")
		}
	}
}

func TestClearActive_FailsOrphanedProcessingRows(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.Upsert(testWebsite())
	id, _ := s.Enqueue(w.ID, models.CheckCrawl, "alice")
	if _, err := s.DequeueNext(); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	n, err := s.ClearActive()
	if err != nil {
		t.Fatalf("clear active: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row cleared, got %d", n)
	}

	pending, err := s.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, item := range pending {
		if item.ID == id {
			t.Fatal("cleared item should not appear as active")
		}
	}
}

func TestPruneOld_RemovesOnlyOldTerminalRows(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.Upsert(testWebsite())
	id, _ := s.Enqueue(w.ID, models.CheckCrawl, "alice")
	if _, err := s.DequeueNext(); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := s.UpdateStatus(id, models.QueueCompleted, "", ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	n, err := s.PruneOld(0) // everything completed is now "older" than now
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row pruned, got %d", n)
	}
	_ = time.Now()
}
