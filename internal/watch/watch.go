// Package watch implements the debounced filesystem watcher (C12) that
// drives the push engine: a recursive fsnotify watch over a package's
// source globs, coalesced into build-then-push cycles with a re-entrancy
// guard and a cooldown between runs.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Defaults for debounce and cooldown, per the watcher's state machine.
const (
	DefaultDebounce = 400 * time.Millisecond
	DefaultCooldown = 500 * time.Millisecond
)

// defaultWatchDirs are the source roots watched when Options.Dirs is empty.
var defaultWatchDirs = []string{"src", "lib", "dist"}

// excludedDirs are never descended into, regardless of Options.Dirs.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".plunk":       true,
}

// State names the watcher's cycle state, reported to Options.OnState for
// tests and CLI progress output.
type State string

const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateBuilding State = "building"
	StatePushing  State = "pushing"
	StateCooldown State = "cooldown"
)

// Options configures a Watcher.
type Options struct {
	PackageDir string
	Dirs       []string
	Debounce   time.Duration
	Cooldown   time.Duration
	BuildCmd   string
	// Push is invoked once per settled cycle, after a successful build (or
	// immediately if BuildCmd is empty).
	Push func() error
	// OnState, if set, is called on every state transition.
	OnState func(State)
	Log     *logrus.Entry
}

// Watcher runs the debounced watch cycle described by the package's state
// machine: idle -> pending (timer armed) -> building -> pushing -> cooldown
// -> idle, with events arriving mid-run coalesced into "run again after
// cooldown".
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	rerun   bool
	timer   *time.Timer
}

// New creates a Watcher for opts, applying defaults for unset fields.
func New(opts Options) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		opts.Dirs = defaultWatchDirs
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Push == nil {
		return nil, fmt.Errorf("watch: Push callback is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	w := &Watcher{opts: opts, fsw: fsw}
	if err := w.addDirs(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addDirs expands each configured glob pattern (path.Match syntax, relative
// to PackageDir) and recursively registers every directory under each
// matching directory, skipping excludedDirs. Matches that are not
// directories are not watched.
func (w *Watcher) addDirs() error {
	for _, pattern := range w.opts.Dirs {
		matches, err := fs.Glob(os.DirFS(w.opts.PackageDir), pattern)
		if err != nil {
			return fmt.Errorf("watch pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			root := filepath.Join(w.opts.PackageDir, filepath.FromSlash(match))
			err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() {
					return nil
				}
				if excludedDirs[filepath.Base(path)] {
					return filepath.SkipDir
				}
				return w.fsw.Add(path)
			})
			if err != nil {
				return fmt.Errorf("watching %s: %w", root, err)
			}
		}
	}
	return nil
}

// Run blocks, driving the debounce/build/push cycle until ctx is canceled
// (typically wired to SIGINT/SIGTERM via signal.NotifyContext).
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Log.WithError(err).Warn("watcher error")
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if shouldIgnore(event.Name) {
				continue
			}
			w.onEvent(ctx)
		}
	}
}

func shouldIgnore(path string) bool {
	for dir := range excludedDirs {
		if strings.Contains(filepath.ToSlash(path), "/"+dir+"/") || strings.HasSuffix(filepath.ToSlash(path), "/"+dir) {
			return true
		}
	}
	return false
}

// onEvent arms (or re-arms) the debounce timer, or—if a cycle is already
// running—marks that another run is needed once the current one settles.
func (w *Watcher) onEvent(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.rerun = true
		return
	}

	w.setState(StatePending)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		w.runCycle(ctx)
	})
}

// runCycle executes one build+push cycle, then cools down and returns to
// idle, re-arming the debounce timer if events coalesced mid-run. A failed
// build skips both the push and the cooldown.
func (w *Watcher) runCycle(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.rerun = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.setState(StateBuilding)
	if w.opts.BuildCmd != "" {
		if err := runBuild(w.opts.PackageDir, w.opts.BuildCmd); err != nil {
			w.opts.Log.WithError(err).Warn("build failed, skipping this cycle's push")
			w.finishCycle(ctx, false)
			return
		}
	}

	w.setState(StatePushing)
	if err := w.opts.Push(); err != nil {
		w.opts.Log.WithError(err).Warn("push failed")
	}

	w.finishCycle(ctx, true)
}

// finishCycle ends a cycle, first waiting out Options.Cooldown when cooldown
// is true, and re-arms the debounce timer if a rerun was requested.
func (w *Watcher) finishCycle(ctx context.Context, cooldown bool) {
	if cooldown {
		w.setState(StateCooldown)
		time.Sleep(w.opts.Cooldown)
	}

	w.mu.Lock()
	w.running = false
	needsRerun := w.rerun
	w.rerun = false
	w.mu.Unlock()

	w.setState(StateIdle)
	if needsRerun {
		w.onEvent(ctx)
	}
}

func (w *Watcher) setState(s State) {
	if w.opts.OnState != nil {
		w.opts.OnState(s)
	}
}

// runBuild runs cmdline through the user's shell in dir, returning the
// combined output on failure.
func runBuild(dir, cmdline string) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, "-c", cmdline)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build command %q: %s: %w", cmdline, out.String(), err)
	}
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
