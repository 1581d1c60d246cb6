package copier

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIncrementalCopyFreshDestination(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "index.js"), "export const x=1;")
	writeFile(t, filepath.Join(src, "lib", "util.js"), "export function f(){}")

	result, err := IncrementalCopy(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := os.ReadFile(filepath.Join(dest, "lib", "util.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "export function f(){}" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestIncrementalCopySkipsUnchanged(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "index.js"), "export const x=1;")
	if _, err := IncrementalCopy(src, dest); err != nil {
		t.Fatal(err)
	}

	result, err := IncrementalCopy(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 0 || result.Skipped != 1 {
		t.Fatalf("expected the unchanged file to be skipped, got %+v", result)
	}
}

func TestIncrementalCopyRemovesStaleFiles(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "index.js"), "v1")
	if _, err := IncrementalCopy(src, dest); err != nil {
		t.Fatal(err)
	}

	os.Remove(filepath.Join(src, "index.js"))
	writeFile(t, filepath.Join(src, "other.js"), "v2")

	result, err := IncrementalCopy(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if result.Removed != 1 || result.Copied != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(dest, "index.js")); !os.IsNotExist(err) {
		t.Fatal("expected stale file to be removed")
	}
}

func TestIncrementalCopyRewritesChangedContent(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "index.js"), "v1")
	if _, err := IncrementalCopy(src, dest); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(src, "index.js"), "v2-longer-content")
	result, err := IncrementalCopy(src, dest)
	if err != nil {
		t.Fatal(err)
	}
	if result.Copied != 1 {
		t.Fatalf("expected changed file to be recopied, got %+v", result)
	}

	got, err := os.ReadFile(filepath.Join(dest, "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2-longer-content" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestIncrementalCopyPrunesEmptyDirs(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	writeFile(t, filepath.Join(src, "nested", "deep", "f.js"), "v1")
	if _, err := IncrementalCopy(src, dest); err != nil {
		t.Fatal(err)
	}

	os.RemoveAll(filepath.Join(src, "nested"))
	if _, err := IncrementalCopy(src, dest); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dest, "nested")); !os.IsNotExist(err) {
		t.Fatal("expected empty nested directory to be pruned")
	}
}
