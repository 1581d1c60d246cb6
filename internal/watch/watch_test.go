package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRequiresPushCallback(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{PackageDir: dir})
	if err == nil {
		t.Fatal("expected error when Push is nil")
	}
}

func TestWatcherDebouncesBurstIntoSinglePush(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatal(err)
	}

	var pushes int32

	w, err := New(Options{
		PackageDir: dir,
		Debounce:   30 * time.Millisecond,
		Cooldown:   10 * time.Millisecond,
		Push: func() error {
			atomic.AddInt32(&pushes, 1)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// A burst of writes within the debounce window should coalesce into one cycle.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(srcDir, "f.js"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	if atomic.LoadInt32(&pushes) < 1 {
		t.Fatalf("expected at least one push, got %d", pushes)
	}
}

func TestShouldIgnoreExcludedDirs(t *testing.T) {
	cases := map[string]bool{
		"/repo/node_modules/pkg/index.js": true,
		"/repo/.git/HEAD":                 true,
		"/repo/.plunk/state.json":         true,
		"/repo/src/index.js":              false,
	}
	for path, want := range cases {
		if got := shouldIgnore(path); got != want {
			t.Errorf("shouldIgnore(%q) = %v, want %v", path, got, want)
		}
	}
}
