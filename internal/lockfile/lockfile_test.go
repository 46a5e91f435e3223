package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquire_SecondCallFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.lock")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer l1.Release()

	_, err = Acquire(path)
	if err == nil {
		t.Fatalf("second Acquire should fail while first holds the lock")
	}
	if _, ok := err.(*ErrHeld); !ok {
		t.Fatalf("expected *ErrHeld, got %T: %v", err, err)
	}
}

func TestAcquire_ReclaimsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.lock")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release should succeed: %v", err)
	}
	l2.Release()
}

func TestAcquire_ReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.lock")

	// A lock file referencing a pid that can't be alive, backdated past
	// StaleAfter, should be reclaimed even without a Release call.
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatalf("seed lock file: %v", err)
	}
	old := time.Now().Add(-3 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("backdate lock file: %v", err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over stale lock should succeed: %v", err)
	}
	l.Release()
}
