package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/plunk/internal/plunkerr"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadValid(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name":"acme","version":"1.0.0","files":["dist"]}`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "acme" || m.Version != "1.0.0" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if !errors.Is(err, plunkerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name":"acme"}`)

	_, err := Load(dir)
	if !errors.Is(err, plunkerr.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestBinsStringForm(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name":"acme","version":"1.0.0","bin":"./bin/acme.js"}`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	bins, err := m.Bins()
	if err != nil {
		t.Fatal(err)
	}
	if bins["acme"] != "./bin/acme.js" {
		t.Fatalf("unexpected bins: %+v", bins)
	}
}

func TestBinsMapForm(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name":"acme","version":"1.0.0","bin":{"acme":"./bin/acme.js","acme2":"./bin/acme2.js"}}`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	bins, err := m.Bins()
	if err != nil {
		t.Fatal(err)
	}
	if len(bins) != 2 {
		t.Fatalf("unexpected bins: %+v", bins)
	}
}
