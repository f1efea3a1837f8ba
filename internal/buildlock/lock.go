// Package buildlock provides the single cooperating-process exclusivity
// lock a Builder holds over its output path for the duration of a build:
// at most one Builder may be appending to a given output path at a time,
// implemented with a non-blocking flock on a sidecar lock file and no
// retry/timeout loop: this format assumes a single build process per
// output path, so a held lock is always a programmer error, not a
// condition to wait out.
package buildlock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock is an acquired exclusive lock over a build's output path.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking flock on "<outputPath>.lock",
// creating the file if needed. It fails immediately if another process
// (or another Builder in this process) already holds it.
func Acquire(outputPath string) (*Lock, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buildlock: create lock directory: %w", err)
	}
	path := outputPath + ".lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("buildlock: open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("buildlock: %s is already locked by another build: %w", outputPath, err)
	}
	return &Lock{file: f, path: path}, nil
}

// Release unlocks and removes the lock file. Safe to call once; a nil
// receiver is a no-op so deferred Release calls in partially-constructed
// callers need no extra guard.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	cerr := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return cerr
}
