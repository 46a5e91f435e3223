// Package lockfile implements the single cross-process coordination
// mechanism this system uses (spec.md §5): a PID file the Scheduler Core
// writes at start() and removes at stop(). Staleness is judged by file
// age and by whether the referenced process is still alive, per
// spec.md §4.2.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StaleAfter is the file age past which a lock file is reclaimed even if
// the process it names is alive (spec.md §4.2: "file age > 2 minutes").
// A lock naming a dead process, or an unreadable one, is reclaimed at any
// age.
const StaleAfter = 2 * time.Minute

// Lock represents an acquired lock file. Release removes it.
type Lock struct {
	path string
}

// ErrHeld is returned by Acquire when a live, non-stale lock already
// exists.
type ErrHeld struct {
	Path string
	PID  int
}

func (e *ErrHeld) Error() string {
	return fmt.Sprintf("lockfile: %s already held by live pid %d", e.Path, e.PID)
}

// Acquire attempts to take the lock at path. If an existing lock file
// references a live process and is not stale, Acquire returns *ErrHeld
// without mutating anything. Otherwise it reclaims (overwrites) the file
// with the current process id.
func Acquire(path string) (*Lock, error) {
	if info, err := os.Stat(path); err == nil {
		pid, readErr := readPID(path)
		age := time.Since(info.ModTime())
		if readErr == nil && age <= StaleAfter && processAlive(pid) {
			return nil, &ErrHeld{Path: path, PID: pid}
		}
		// Stale: either unreadable, too old, or the process is gone.
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("lockfile: stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once; idempotent if the
// file is already gone.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: remove %s: %w", l.path, err)
	}
	return nil
}

func readPID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}
