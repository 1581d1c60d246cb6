package inject

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/store"
)

func writeManifest(t *testing.T, dir string, m map[string]any) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func makeStoreEntry(t *testing.T) *store.Entry {
	t.Helper()
	s := store.New(t.TempDir(), nil)
	pkgDir, err := s.PackageDir("acme", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	writeManifest(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0", "bin": map[string]string{"acme-cli": "cli.js"}})
	if err := os.WriteFile(filepath.Join(pkgDir, "cli.js"), []byte("#!/usr/bin/env node\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "index.js"), []byte("module.exports = {};"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteMeta("acme", "1.0.0", store.Meta{ContentHash: "sha256v2:x", PublishedAt: store.Now(), SourcePath: "/src"}); err != nil {
		t.Fatal(err)
	}
	entry, err := s.GetStoreEntry("acme", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	return entry
}

func TestInjectMaterializesFiles(t *testing.T) {
	consumer := t.TempDir()
	entry := makeStoreEntry(t)

	result, err := Inject(consumer, entry, pmlayout.NPM, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied == 0 {
		t.Fatalf("expected files to be copied, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(consumer, "node_modules", "acme", "index.js")); err != nil {
		t.Fatalf("expected index.js at install dir: %v", err)
	}
}

func TestInjectCreatesBinShim(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shim test")
	}
	consumer := t.TempDir()
	entry := makeStoreEntry(t)

	result, err := Inject(consumer, entry, pmlayout.NPM, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.BinShims) != 1 || result.BinShims[0] != "acme-cli" {
		t.Fatalf("expected acme-cli bin shim, got %+v", result.BinShims)
	}

	shimPath := filepath.Join(consumer, "node_modules", ".bin", "acme-cli")
	info, err := os.Lstat(shimPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected bin shim to be a symlink")
	}
}

func TestInjectBackupExistingSnapshotsPriorInstall(t *testing.T) {
	consumer := t.TempDir()
	entry := makeStoreEntry(t)

	existingDir := filepath.Join(consumer, "node_modules", "acme")
	if err := os.MkdirAll(existingDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(existingDir, "old.js"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Inject(consumer, entry, pmlayout.NPM, Options{BackupExisting: true}, nil); err != nil {
		t.Fatal(err)
	}

	backupPath := filepath.Join(consumer, ".plunk", "backup", "acme", "old.js")
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("expected backup of old.js: %v", err)
	}
}

func TestInvalidateBundlerCachesRemovesKnownDirs(t *testing.T) {
	consumer := t.TempDir()
	viteCache := filepath.Join(consumer, "node_modules", ".vite")
	if err := os.MkdirAll(viteCache, 0755); err != nil {
		t.Fatal(err)
	}

	invalidated := invalidateBundlerCaches(consumer, nil)
	if len(invalidated) != 1 {
		t.Fatalf("expected one invalidated cache dir, got %+v", invalidated)
	}
	if _, err := os.Stat(viteCache); !os.IsNotExist(err) {
		t.Fatal("expected vite cache to be removed")
	}
}

func TestRemoveInjectedDeletesDirAndShims(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shim test")
	}
	consumer := t.TempDir()
	entry := makeStoreEntry(t)

	if _, err := Inject(consumer, entry, pmlayout.NPM, Options{}, nil); err != nil {
		t.Fatal(err)
	}

	if err := RemoveInjected(consumer, "acme", pmlayout.NPM); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(consumer, "node_modules", "acme")); !os.IsNotExist(err) {
		t.Fatal("expected install dir to be removed")
	}
	if _, err := os.Lstat(filepath.Join(consumer, "node_modules", ".bin", "acme-cli")); !os.IsNotExist(err) {
		t.Fatal("expected bin shim to be removed")
	}
}

func TestRestoreBackupMovesBackupIntoPlace(t *testing.T) {
	consumer := t.TempDir()
	entry := makeStoreEntry(t)

	existingDir := filepath.Join(consumer, "node_modules", "acme")
	if err := os.MkdirAll(existingDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(existingDir, "old.js"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Inject(consumer, entry, pmlayout.NPM, Options{BackupExisting: true}, nil); err != nil {
		t.Fatal(err)
	}

	if err := RestoreBackup(consumer, "acme", pmlayout.NPM); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(consumer, "node_modules", "acme", "old.js")); err != nil {
		t.Fatalf("expected old.js restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(consumer, ".plunk", "backup", "acme")); !os.IsNotExist(err) {
		t.Fatal("expected backup dir to be consumed by restore")
	}
}
