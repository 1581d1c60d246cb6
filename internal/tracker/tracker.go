// Package tracker implements the two authoritative indices (C6): each
// consumer's per-project link state, and the process-wide package->consumers
// registry, plus the garbage-collection invariants that tie them to the
// store.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/etnz/plunk/internal/atomicfile"
	"github.com/etnz/plunk/internal/filelock"
)

// StateVersion is the only consumer-state schema version this tracker
// understands; any other value (or absence) yields an empty default state.
const StateVersion = "1"

// stateFileName is the per-consumer state file, relative to the consumer root.
const stateFileName = ".plunk/state.json"

// LinkEntry is a per-consumer record describing one linked package.
type LinkEntry struct {
	Version        string `json:"version"`
	ContentHash    string `json:"contentHash"`
	LinkedAt       string `json:"linkedAt"`
	SourcePath     string `json:"sourcePath"`
	BackupExists   bool   `json:"backupExists"`
	PackageManager string `json:"packageManager"`
	BuildID        string `json:"buildId,omitempty"`
}

// State is a consumer's full link state, as persisted to .plunk/state.json.
type State struct {
	Version        string               `json:"version"`
	PackageManager string               `json:"packageManager,omitempty"`
	Role           string               `json:"role,omitempty"`
	Links          map[string]LinkEntry `json:"links"`
}

func emptyState() State {
	return State{Version: StateVersion, Links: map[string]LinkEntry{}}
}

func statePath(consumerPath string) string {
	return filepath.Join(consumerPath, stateFileName)
}

// ReadState returns consumerPath's link state, or an empty default state if
// the file is absent, is not valid JSON, or carries an unrecognized version.
// Any other read failure is returned as an error.
func ReadState(consumerPath string) (State, error) {
	data, err := os.ReadFile(statePath(consumerPath))
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return emptyState(), fmt.Errorf("reading state for %s: %w", consumerPath, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return emptyState(), nil
	}
	if s.Version != StateVersion {
		return emptyState(), nil
	}
	if s.Links == nil {
		s.Links = map[string]LinkEntry{}
	}
	return s, nil
}

func writeState(consumerPath string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state for %s: %w", consumerPath, err)
	}
	return atomicfile.Write(statePath(consumerPath), data, 0644)
}

// stateLockPath scopes a consumer's state file lock separately from its
// actual state file so concurrent writers contend on a stable path even
// while the state file itself is being atomically replaced.
func stateLockPath(consumerPath string) string {
	return filepath.Join(consumerPath, ".plunk", "state.lock")
}

// withStateLock runs fn under the cross-process lock for consumerPath's
// state file, reading the current state and letting fn mutate it before it
// is written back.
func withStateLock(consumerPath string, fn func(*State) error) error {
	return filelock.WithLock(stateLockPath(consumerPath), func() error {
		s, err := ReadState(consumerPath)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		return writeState(consumerPath, s)
	})
}

// AddLink creates or overwrites consumerPath's link entry for name.
func AddLink(consumerPath, name string, entry LinkEntry) error {
	return withStateLock(consumerPath, func(s *State) error {
		s.Links[name] = entry
		return nil
	})
}

// RemoveLink deletes consumerPath's link entry for name, if any.
func RemoveLink(consumerPath, name string) error {
	return withStateLock(consumerPath, func(s *State) error {
		delete(s.Links, name)
		return nil
	})
}

// GetLink returns consumerPath's link entry for name, and whether it exists.
func GetLink(consumerPath, name string) (LinkEntry, bool, error) {
	s, err := ReadState(consumerPath)
	if err != nil {
		return LinkEntry{}, false, err
	}
	entry, ok := s.Links[name]
	return entry, ok, nil
}

// --- Global consumers registry ---

// Registry maps a package name to the ordered set of consumer absolute
// paths that have linked it, forward-slash normalized.
type Registry map[string][]string

// ReadConsumersRegistry reads registryPath, returning an empty registry if
// the file is absent or is not valid JSON. Any other read failure is
// returned as an error.
func ReadConsumersRegistry(registryPath string) (Registry, error) {
	data, err := os.ReadFile(registryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Registry{}, nil
		}
		return Registry{}, fmt.Errorf("reading consumers registry %s: %w", registryPath, err)
	}

	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return Registry{}, nil
	}
	if r == nil {
		r = Registry{}
	}
	return r, nil
}

func writeConsumersRegistry(registryPath string, r Registry) error {
	// Prune empty arrays; an empty list for a key is represented by
	// removing the key entirely.
	pruned := Registry{}
	for pkg, paths := range r {
		if len(paths) > 0 {
			pruned[pkg] = paths
		}
	}

	data, err := json.MarshalIndent(pruned, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling consumers registry: %w", err)
	}
	return atomicfile.Write(registryPath, data, 0644)
}

func withRegistryLock(registryPath string, fn func(Registry) (Registry, error)) error {
	return filelock.WithLock(registryPath+".lock", func() error {
		r, err := ReadConsumersRegistry(registryPath)
		if err != nil {
			return err
		}
		next, err := fn(r)
		if err != nil {
			return err
		}
		return writeConsumersRegistry(registryPath, next)
	})
}

// RegisterConsumer adds consumerPath (forward-slash normalized) to pkgName's
// entry in the registry at registryPath, deduplicating.
func RegisterConsumer(registryPath, pkgName, consumerPath string) error {
	normalized := filepath.ToSlash(consumerPath)
	return withRegistryLock(registryPath, func(r Registry) (Registry, error) {
		paths := r[pkgName]
		for _, p := range paths {
			if p == normalized {
				return r, nil
			}
		}
		r[pkgName] = append(paths, normalized)
		return r, nil
	})
}

// UnregisterConsumer removes consumerPath from pkgName's entry in the
// registry at registryPath.
func UnregisterConsumer(registryPath, pkgName, consumerPath string) error {
	normalized := filepath.ToSlash(consumerPath)
	return withRegistryLock(registryPath, func(r Registry) (Registry, error) {
		paths := r[pkgName]
		out := paths[:0]
		for _, p := range paths {
			if p != normalized {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			delete(r, pkgName)
		} else {
			r[pkgName] = out
		}
		return r, nil
	})
}

// GetConsumers returns the consumer paths registered for pkgName.
func GetConsumers(registryPath, pkgName string) ([]string, error) {
	r, err := ReadConsumersRegistry(registryPath)
	if err != nil {
		return nil, err
	}
	return r[pkgName], nil
}

// CleanResult reports what CleanStaleConsumers pruned.
type CleanResult struct {
	RemovedConsumers int
	RemovedPackages  int
}

// CleanStaleConsumers prunes registry entries whose consumer directory no
// longer exists on disk, or whose own state file no longer lists the
// package among its links.
func CleanStaleConsumers(registryPath string) (CleanResult, error) {
	var result CleanResult
	err := withRegistryLock(registryPath, func(r Registry) (Registry, error) {
		next := Registry{}
		for pkgName, paths := range r {
			var kept []string
			for _, consumerPath := range paths {
				localPath := filepath.FromSlash(consumerPath)
				if _, err := os.Stat(localPath); err != nil {
					result.RemovedConsumers++
					continue
				}
				state, err := ReadState(localPath)
				if err != nil {
					result.RemovedConsumers++
					continue
				}
				if _, ok := state.Links[pkgName]; !ok {
					result.RemovedConsumers++
					continue
				}
				kept = append(kept, consumerPath)
			}
			if len(kept) == 0 {
				result.RemovedPackages++
				continue
			}
			next[pkgName] = kept
		}
		return next, nil
	})
	return result, err
}

// sortedPackageNames returns r's package names sorted, for deterministic
// registry iteration order.
func sortedPackageNames(r Registry) []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PackageNames returns the registry's package names in sorted order.
func PackageNames(r Registry) []string {
	return sortedPackageNames(r)
}
