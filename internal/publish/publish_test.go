package publish

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/plunk/internal/store"
)

func writePackage(t *testing.T, dir string, manifestBody map[string]any, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(manifestBody)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPublishWritesStoreEntry(t *testing.T) {
	pkgDir := t.TempDir()
	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0"}, map[string]string{
		"index.js": "export const x = 1;",
	})

	s := store.New(t.TempDir(), nil)
	result, err := Publish(s, pkgDir, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped {
		t.Fatal("expected first publish to not be skipped")
	}

	entry, err := s.GetStoreEntry("acme", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Meta.ContentHash != result.ContentHash {
		t.Fatalf("mismatched content hash: %+v", entry.Meta)
	}
	if _, err := os.Stat(filepath.Join(entry.PackageDir, "index.js")); err != nil {
		t.Fatalf("expected index.js in package dir: %v", err)
	}
}

func TestPublishSkipsUnchangedContent(t *testing.T) {
	pkgDir := t.TempDir()
	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0"}, map[string]string{
		"index.js": "export const x = 1;",
	})

	s := store.New(t.TempDir(), nil)
	if _, err := Publish(s, pkgDir, Options{}, nil); err != nil {
		t.Fatal(err)
	}

	result, err := Publish(s, pkgDir, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Skipped {
		t.Fatal("expected second publish with identical content to be skipped")
	}
}

func TestPublishRewritesOnContentChange(t *testing.T) {
	pkgDir := t.TempDir()
	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0"}, map[string]string{
		"index.js": "export const x = 1;",
	})

	s := store.New(t.TempDir(), nil)
	if _, err := Publish(s, pkgDir, Options{}, nil); err != nil {
		t.Fatal(err)
	}

	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0"}, map[string]string{
		"index.js": "export const x = 2;",
	})
	result, err := Publish(s, pkgDir, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped {
		t.Fatal("expected publish after content change to not be skipped")
	}

	entry, err := s.GetStoreEntry("acme", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(entry.PackageDir, "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "export const x = 2;" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestPublishPrivateRefusedWithoutAllowFlag(t *testing.T) {
	pkgDir := t.TempDir()
	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0", "private": true}, map[string]string{
		"index.js": "x",
	})

	s := store.New(t.TempDir(), nil)
	_, err := Publish(s, pkgDir, Options{}, nil)
	if err == nil {
		t.Fatal("expected private package publish to be refused")
	}
}

func TestPublishPrivateAllowedWithFlag(t *testing.T) {
	pkgDir := t.TempDir()
	writePackage(t, pkgDir, map[string]any{"name": "acme", "version": "1.0.0", "private": true}, map[string]string{
		"index.js": "x",
	})

	s := store.New(t.TempDir(), nil)
	_, err := Publish(s, pkgDir, Options{AllowPrivate: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestPublishRunsPrepackScript(t *testing.T) {
	pkgDir := t.TempDir()
	marker := filepath.Join(pkgDir, "generated.js")
	writePackage(t, pkgDir, map[string]any{
		"name":    "acme",
		"version": "1.0.0",
		"files":   []string{"generated.js"},
		"scripts": map[string]string{"prepack": "echo built > generated.js"},
	}, nil)

	s := store.New(t.TempDir(), nil)
	if _, err := Publish(s, pkgDir, Options{RunScripts: true}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected prepack script to create %s: %v", marker, err)
	}
}
