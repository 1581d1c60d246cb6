// Package plunkctx holds the small set of process-wide settings
// (data directory, verbosity, output mode) read once at startup and
// threaded explicitly through the call stack, rather than consulted
// as mutable globals deeper in the pipeline.
package plunkctx

import (
	"os"
	"path/filepath"
)

// Context carries the flags and paths shared by every plunk command.
type Context struct {
	// Home is the plunk data directory (store/, consumers.json), overridable
	// via PLUNK_HOME.
	Home string
	// Verbose raises the log level across all components.
	Verbose bool
	// JSONOutput records the --json flag. No command reads it: the flag only
	// switches log records to JSON (see plunklog), and command results on
	// stdout are plain text either way.
	JSONOutput bool
	// DryRun records the --dry-run flag. No command reads it: the store, a
	// consumer's node_modules and the tracker are mutated whether or not it
	// is set.
	DryRun bool
}

// New resolves Home from PLUNK_HOME or the OS per-user data directory.
func New(verbose, jsonOutput, dryRun bool) (*Context, error) {
	home := os.Getenv("PLUNK_HOME")
	if home == "" {
		dataDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = filepath.Join(dataDir, ".local", "share", "plunk")
	}
	return &Context{
		Home:       home,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
		DryRun:     dryRun,
	}, nil
}

// StoreRoot is the content-addressed store directory under Home.
func (c *Context) StoreRoot() string {
	return filepath.Join(c.Home, "store")
}

// ConsumersRegistryPath is the global package->consumers registry file.
func (c *Context) ConsumersRegistryPath() string {
	return filepath.Join(c.Home, "consumers.json")
}
