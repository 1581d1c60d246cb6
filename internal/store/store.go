// Package store implements the content-addressed, metadata-tagged store
// (C5): one directory per published (name, version), with atomic metadata
// writes and cross-process locking around every mutation.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/etnz/plunk/internal/atomicfile"
	"github.com/etnz/plunk/internal/filelock"
	"github.com/etnz/plunk/internal/pathenc"
	"github.com/etnz/plunk/internal/plunkerr"
	"github.com/sirupsen/logrus"
)

// metaFileName is the canonical metadata filename within a store entry.
const metaFileName = ".plunk-meta.json"

// packageDirName is the subdirectory holding the published file tree.
const packageDirName = "package"

// Meta is a store entry's metadata, written atomically after packageDir is
// fully populated (I2).
type Meta struct {
	ContentHash string `json:"contentHash"`
	PublishedAt string `json:"publishedAt"`
	SourcePath  string `json:"sourcePath"`
	BuildID     string `json:"buildId,omitempty"`
}

// valid reports whether m passes the validation rules in §4.4 of the spec:
// contentHash, publishedAt and sourcePath are non-empty strings.
func (m *Meta) valid() bool {
	return m != nil && m.ContentHash != "" && m.PublishedAt != "" && m.SourcePath != ""
}

// Entry is a fully resolved store entry: identity, the directory holding its
// files, and its metadata.
type Entry struct {
	Name       string
	Version    string
	PackageDir string
	Meta       Meta
}

// Store is a content-addressed store rooted at Root.
type Store struct {
	Root string
	log  *logrus.Entry
}

// New returns a Store rooted at root.
func New(root string, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{Root: root, log: log}
}

func (s *Store) entryDir(name, version string) string {
	return filepath.Join(s.Root, pathenc.Encode(name)+"@"+version)
}

func (s *Store) metaPath(name, version string) string {
	return filepath.Join(s.entryDir(name, version), metaFileName)
}

func (s *Store) packageDir(name, version string) string {
	return filepath.Join(s.entryDir(name, version), packageDirName)
}

func (s *Store) lockPath(name, version string) string {
	return filepath.Join(s.entryDir(name, version), ".lock")
}

// PackageDir returns the absolute path of the directory a publisher should
// populate with name@version's selected files, creating the store entry
// directory (owner-only permissions) if it doesn't already exist.
func (s *Store) PackageDir(name, version string) (string, error) {
	dir := s.packageDir(name, version)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// ReadMeta returns name@version's metadata, or nil if the entry is absent or
// its metadata fails validation (logged as a warning, since corrupt metadata
// is treated as absence and self-heals on republish).
func (s *Store) ReadMeta(name, version string) (*Meta, error) {
	data, err := os.ReadFile(s.metaPath(name, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata for %s@%s: %w", name, version, err)
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		s.log.WithFields(logrus.Fields{"name": name, "version": version}).Warnf("corrupt store metadata: %v", err)
		return nil, nil
	}
	if !m.valid() {
		s.log.WithFields(logrus.Fields{"name": name, "version": version}).Warn("store metadata failed validation")
		return nil, nil
	}
	return &m, nil
}

// WriteMeta atomically writes meta for name@version.
func (s *Store) WriteMeta(name, version string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s@%s: %w", name, version, err)
	}
	return atomicfile.Write(s.metaPath(name, version), data, 0600)
}

// GetStoreEntry returns the store entry for (name, version) only if both its
// metadata and package/ subdirectory exist.
func (s *Store) GetStoreEntry(name, version string) (*Entry, error) {
	meta, err := s.ReadMeta(name, version)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%s@%s: %w", name, version, plunkerr.ErrNotFound)
	}

	pkgDir := s.packageDir(name, version)
	info, err := os.Stat(pkgDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s@%s: %w", name, version, plunkerr.ErrNotFound)
	}

	return &Entry{Name: name, Version: version, PackageDir: pkgDir, Meta: *meta}, nil
}

// FindStoreEntry scans the store root for the entry of name with the
// largest PublishedAt, or nil if none exists.
func (s *Store) FindStoreEntry(name string) (*Entry, error) {
	candidates, err := s.listVersions(name)
	if err != nil {
		return nil, err
	}

	var best *Entry
	for _, version := range candidates {
		entry, err := s.GetStoreEntry(name, version)
		if err != nil {
			continue
		}
		if best == nil || entry.Meta.PublishedAt > best.Meta.PublishedAt {
			best = entry
		}
	}
	return best, nil
}

func (s *Store) listVersions(name string) ([]string, error) {
	dirEntries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store root %s: %w", s.Root, err)
	}

	prefix := pathenc.Encode(name) + "@"
	var versions []string
	for _, de := range dirEntries {
		if !de.IsDir() || !hasPrefix(de.Name(), prefix) {
			continue
		}
		versions = append(versions, de.Name()[len(prefix):])
	}
	return versions, nil
}

// ListStoreEntries returns every valid entry across the whole store.
func (s *Store) ListStoreEntries() ([]*Entry, error) {
	dirEntries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store root %s: %w", s.Root, err)
	}

	var entries []*Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name, version, ok := splitEncodedDirName(de.Name())
		if !ok {
			continue
		}
		entry, err := s.GetStoreEntry(pathenc.Decode(name), version)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
	return entries, nil
}

// RemoveStoreEntry recursively deletes name@version's directory, ignoring
// absence.
func (s *Store) RemoveStoreEntry(name, version string) error {
	if err := os.RemoveAll(s.entryDir(name, version)); err != nil {
		return fmt.Errorf("removing store entry %s@%s: %w", name, version, err)
	}
	return nil
}

// WithEntryLock runs fn while holding the cross-process lock scoped to
// name@version's store entry.
func (s *Store) WithEntryLock(name, version string, fn func() error) error {
	return filelock.WithLock(s.lockPath(name, version), fn)
}

// Now is the store's clock, a seam for tests; production code always calls
// time.Now().UTC().Format(time.RFC3339Nano).
var Now = func() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// splitEncodedDirName splits a store directory name at its last "@",
// matching §4.4's "parses the last-@ split" rule. A scoped, encoded name
// carries "@" only as its first character, which the split never uses
// (idx <= 0 is rejected). A version that itself contains "@" (such as
// "1.0.0-beta@build") is split at its own "@", so only "build" is read as
// the version.
func splitEncodedDirName(dirName string) (encodedName, version string, ok bool) {
	idx := lastIndexByte(dirName, '@')
	if idx <= 0 || idx == len(dirName)-1 {
		return "", "", false
	}
	return dirName[:idx], dirName[idx+1:], true
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
