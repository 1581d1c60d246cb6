// Package pmlayout resolves where a given package manager installs a
// dependency inside a consumer project (C8): npm, yarn and bun install
// flat under node_modules/<name>, while pnpm's virtual store requires
// either following the top-level symlink or scanning the hashed store
// directory directly.
package pmlayout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/plunk/internal/pathenc"
)

// PackageManager identifies the dependency layout convention in use.
type PackageManager string

const (
	NPM  PackageManager = "npm"
	Yarn PackageManager = "yarn"
	Bun  PackageManager = "bun"
	PNPM PackageManager = "pnpm"
)

// Detect infers the package manager in use under consumerPath from the
// lockfile it finds, defaulting to npm when none is present.
func Detect(consumerPath string) PackageManager {
	switch {
	case fileExists(filepath.Join(consumerPath, "pnpm-lock.yaml")):
		return PNPM
	case fileExists(filepath.Join(consumerPath, "yarn.lock")):
		return Yarn
	case fileExists(filepath.Join(consumerPath, "bun.lockb")), fileExists(filepath.Join(consumerPath, "bun.lock")):
		return Bun
	default:
		return NPM
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InstallDir returns the absolute directory where packageName is (or would
// be) installed under consumerPath for pm. For npm/yarn/bun this is always
// node_modules/<name>. For pnpm, it first follows node_modules/<name> as a
// symlink to its real virtual-store target; if no symlink exists yet, it
// scans node_modules/.pnpm for a directory whose name is
// encode(packageName)+"@"-prefixed and returns its nested node_modules/<name>
// path; if neither resolves, it falls back to the direct path so callers
// can create it.
func InstallDir(consumerPath string, packageName string, pm PackageManager) (string, error) {
	direct := filepath.Join(consumerPath, "node_modules", filepath.FromSlash(scopedRelPath(packageName)))

	if pm != PNPM {
		return direct, nil
	}

	if target, err := filepath.EvalSymlinks(direct); err == nil {
		info, statErr := os.Lstat(direct)
		if statErr == nil && info.Mode()&os.ModeSymlink != 0 {
			return target, nil
		}
	}

	storeDir := filepath.Join(consumerPath, "node_modules", ".pnpm")
	entries, err := os.ReadDir(storeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return direct, nil
		}
		return "", fmt.Errorf("reading pnpm virtual store %s: %w", storeDir, err)
	}

	prefix := pathenc.Encode(packageName) + "@"
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		nested := filepath.Join(storeDir, e.Name(), "node_modules", filepath.FromSlash(scopedRelPath(packageName)))
		if fileExists(nested) {
			return nested, nil
		}
	}

	return direct, nil
}

// scopedRelPath returns packageName's relative path under a node_modules
// tree: scoped names (@scope/name) keep their slash, since node_modules
// nests scope directories rather than flattening them like the store does.
func scopedRelPath(packageName string) string {
	return packageName
}
