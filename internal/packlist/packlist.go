// Package packlist implements the pack-list resolver (C2): deterministic
// selection of the files a package contributes to a publish.
package packlist

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/etnz/plunk/internal/manifest"
)

// wellKnownTopFiles are added if present at the package root and not
// already selected, regardless of which selection branch ran.
var wellKnownTopFiles = []string{"README", "README.md", "LICENSE", "LICENCE", "CHANGELOG.md"}

// globMeta are the characters that mark a "files" entry as a glob pattern
// rather than a literal path (the spec's Open Question is resolved here as
// true glob matching, via gobwas/glob).
const globMeta = "*?["

// Resolve returns the absolute paths of every file m's package selects for
// publishing, deduplicated and in a stable insertion order: the manifest
// itself first, then either the "files" selection or the full-tree fallback,
// then any well-known top-level files not already present.
func Resolve(m *manifest.Manifest) ([]string, error) {
	root := m.Dir()
	seen := make(map[string]bool)
	var out []string

	add := func(abs string) {
		abs = filepath.Clean(abs)
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}

	add(m.Path())

	if len(m.Files) > 0 {
		if err := resolveFilesField(root, m.Files, add); err != nil {
			return nil, err
		}
	} else {
		if err := resolveFallback(root, add); err != nil {
			return nil, err
		}
	}

	for _, name := range wellKnownTopFiles {
		abs := filepath.Join(root, name)
		if seen[filepath.Clean(abs)] {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
			add(abs)
		}
	}

	return out, nil
}

// resolveFilesField implements step 2 of the algorithm: literal entries are
// stat'd directly, glob entries are expanded against the full relative file
// list of root.
func resolveFilesField(root string, entries []string, add func(string)) error {
	var allRel []string
	hasGlob := false
	for _, e := range entries {
		if strings.ContainsAny(e, globMeta) {
			hasGlob = true
		}
	}
	if hasGlob {
		var err error
		allRel, err = listAllRegularFiles(root)
		if err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if strings.ContainsAny(entry, globMeta) {
			g, err := glob.Compile(entry, '/')
			if err != nil {
				// Not a valid glob after all; fall back to literal stat.
				addLiteralEntry(root, entry, add)
				continue
			}
			for _, rel := range allRel {
				if g.Match(rel) {
					add(filepath.Join(root, rel))
				}
			}
			continue
		}
		addLiteralEntry(root, entry, add)
	}
	return nil
}

// addLiteralEntry stats entry relative to root: a directory is recursed
// (every regular file included), a regular file is included, anything else
// (missing, symlink-to-nowhere, device, etc.) is silently skipped.
func addLiteralEntry(root, entry string, add func(string)) {
	target := filepath.Join(root, entry)
	info, err := os.Stat(target)
	if err != nil {
		return
	}
	if info.IsDir() {
		_ = filepath.Walk(target, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if fi.Name() == "node_modules" && fi.IsDir() {
				return filepath.SkipDir
			}
			if fi.Mode().IsRegular() {
				add(path)
			}
			return nil
		})
		return
	}
	if info.Mode().IsRegular() {
		add(target)
	}
}

// resolveFallback implements step 3: recursively collect every regular file
// under root, excluding node_modules and .git unconditionally, the
// default-ignore list, and any patterns from a sibling .npmignore.
func resolveFallback(root string, add func(string)) error {
	extra, err := loadNpmignore(root)
	if err != nil {
		return err
	}

	return filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			if defaultIgnoreDirs[fi.Name()] {
				return filepath.SkipDir
			}
			if matchesIgnorePattern(rel, fi.Name(), extra) {
				return filepath.SkipDir
			}
			return nil
		}

		if defaultIgnoreFiles[fi.Name()] {
			return nil
		}
		if matchesIgnorePattern(rel, fi.Name(), extra) {
			return nil
		}
		if fi.Mode().IsRegular() {
			add(path)
		}
		return nil
	})
}

// matchesIgnorePattern checks rel (full relative path) and base (final path
// segment) against .npmignore-style tokens: line-wise equality against
// either form, no glob semantics (matching the original source's literal
// sibling-file handling).
func matchesIgnorePattern(rel, base string, patterns []string) bool {
	for _, p := range patterns {
		if p == rel || p == base {
			return true
		}
		if strings.HasSuffix(p, "/") && (rel == strings.TrimSuffix(p, "/") || base == strings.TrimSuffix(p, "/")) {
			return true
		}
	}
	return false
}

func loadNpmignore(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, npmignoreName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// listAllRegularFiles returns every regular file under root (relative,
// slash-separated paths), never descending into node_modules.
func listAllRegularFiles(root string) ([]string, error) {
	var rels []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if fi.IsDir() {
			if fi.Name() == "node_modules" || fi.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.Mode().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rels = append(rels, filepath.ToSlash(rel))
		}
		return nil
	})
	return rels, err
}
