//go:build unix

package audit

import (
	"os"
	"syscall"
)

// lockExclusive takes an advisory, process-wide exclusive lock on f for
// the duration of one append. No ecosystem library in the dependency
// pack offers file locking, so this uses the standard library's syscall
// package directly (see DESIGN.md).
func lockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

// unlock releases the advisory lock taken by lockExclusive.
func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
