// Package filelock implements the cross-process advisory lock (C4) guarding
// store and registry mutations. It wraps github.com/gofrs/flock's OS-level
// mutual exclusion with the retry/backoff and staleness-reclaim policy the
// spec requires, since flock alone neither retries nor expires stale locks.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/etnz/plunk/internal/plunkerr"
)

const (
	baseBackoff = 100 * time.Millisecond
	maxBackoff  = 1 * time.Second
	maxRetries  = 5
	staleAfter  = 10 * time.Second
)

// WithLock acquires an advisory lock scoped to lockPath, runs fn while
// holding it, and releases it on every exit path — including fn panicking,
// in which case the lock is released and the panic re-raised. If the lock
// can't be acquired within the retry budget, it returns an error wrapping
// plunkerr.ErrLockBusy that names lockPath.
func WithLock(lockPath string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return fmt.Errorf("creating lock directory for %s: %w", lockPath, err)
	}

	fl := flock.New(lockPath)

	if err := acquire(fl, lockPath); err != nil {
		return err
	}
	defer fl.Unlock()

	var panicked any
	var err error
	func() {
		defer func() {
			panicked = recover()
		}()
		err = fn()
	}()
	if panicked != nil {
		panic(panicked)
	}
	return err
}

// acquire retries TryLock with exponential backoff, reclaiming the lock file
// if it looks stale between attempts.
func acquire(fl *flock.Flock, lockPath string) error {
	backoff := baseBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		locked, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring lock %s: %w", lockPath, err)
		}
		if locked {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		reclaimIfStale(lockPath)

		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return fmt.Errorf("lock %s: %w", lockPath, plunkerr.ErrLockBusy)
}

// reclaimIfStale removes the lock file if its mtime is older than
// staleAfter, letting the next TryLock succeed against a fresh file. This is
// best-effort: if another process holds the lock for a legitimate
// long-running operation, removing the file doesn't affect its open file
// descriptor, and that process's eventual Unlock is a harmless no-op.
func reclaimIfStale(lockPath string) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) > staleAfter {
		os.Remove(lockPath)
	}
}
