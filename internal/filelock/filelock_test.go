package filelock

import (
	"path/filepath"
	"testing"
)

func TestWithLockRunsFn(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "sub", "lock")

	ran := false
	err := WithLock(lockPath, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("fn did not run")
	}
}

func TestWithLockReleasesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "lock")

	if err := WithLock(lockPath, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	// A second acquisition should succeed immediately since the first released.
	if err := WithLock(lockPath, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestWithLockPropagatesFnError(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "lock")

	sentinelErr := errSentinel{}
	err := WithLock(lockPath, func() error { return sentinelErr })
	if err != sentinelErr {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }
