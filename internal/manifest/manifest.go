// Package manifest loads and validates a package's package.json-equivalent
// manifest: identity, the optional "files" allowlist, lifecycle scripts, and
// the "bin" map the injector uses to create launcher shims.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/plunk/internal/plunkerr"
)

// FileName is the manifest's canonical filename within a package directory.
const FileName = "package.json"

// Manifest is the subset of package.json fields plunk's pipeline cares about.
type Manifest struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Private bool              `json:"private"`
	Files   []string          `json:"files,omitempty"`
	Scripts map[string]string `json:"scripts,omitempty"`
	Bin     json.RawMessage   `json:"bin,omitempty"`

	// path is the absolute path to the manifest file, used to resolve
	// relative "files" entries against the package root.
	path string
}

// Load reads and validates the manifest at packageDir/package.json.
func Load(packageDir string) (*Manifest, error) {
	path := filepath.Join(packageDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, plunkerr.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, plunkerr.ErrIO)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, plunkerr.ErrInvalidManifest)
	}
	m.path = path

	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("%s: name and version are required: %w", path, plunkerr.ErrInvalidManifest)
	}

	return &m, nil
}

// Path returns the absolute path to the manifest file.
func (m *Manifest) Path() string {
	return m.path
}

// Dir returns the package root directory the manifest lives in.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.path)
}

// Bins returns the manifest's "bin" field normalized to a name->relative-path
// map. package.json allows "bin" to be either a single string (meaning the
// package name maps to that path) or an object of multiple entries.
func (m *Manifest) Bins() (map[string]string, error) {
	if len(m.Bin) == 0 {
		return nil, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(m.Bin, &asMap); err == nil {
		return asMap, nil
	}

	var asString string
	if err := json.Unmarshal(m.Bin, &asString); err == nil {
		if asString == "" {
			return nil, nil
		}
		return map[string]string{m.Name: asString}, nil
	}

	return nil, fmt.Errorf("%s: unsupported \"bin\" shape: %w", m.path, plunkerr.ErrInvalidManifest)
}
