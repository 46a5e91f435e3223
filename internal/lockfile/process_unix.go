//go:build !windows

package lockfile

import (
	"os"
	"syscall"
)

// processAlive reports whether pid refers to a live process. Signal 0
// performs no action but still reports ESRCH for a dead pid, mirroring
// the teacher's Unix/Windows split for OS-level process and file
// primitives (backend/logging/filelock_unix.go).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
