// Package publish implements the publisher pipeline (C9): validate the
// manifest, run the optional prepack hook, resolve the pack list, compute
// the aggregate content hash, and atomically promote the result into the
// store under a per-entry lock, skipping the rewrite entirely when nothing
// changed since the last publish.
package publish

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/etnz/plunk/internal/copier"
	"github.com/etnz/plunk/internal/hashutil"
	"github.com/etnz/plunk/internal/manifest"
	"github.com/etnz/plunk/internal/packlist"
	"github.com/etnz/plunk/internal/plunkerr"
	"github.com/etnz/plunk/internal/store"
)

// Options configures a single publish call.
type Options struct {
	AllowPrivate bool
	RunScripts   bool
	BuildID      string
	// Force bypasses the skip-if-unchanged check, rewriting the store entry
	// even when its content hash already matches.
	Force bool
}

// Result reports the outcome of a publish.
type Result struct {
	Name        string
	Version     string
	ContentHash string
	Skipped     bool
}

// Publish packs packageDir's distributable files into s under the
// manifest's name@version, skipping the write if the resulting content hash
// matches the existing store entry.
func Publish(s *store.Store, packageDir string, opts Options, log *logrus.Entry) (Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	m, err := manifest.Load(packageDir)
	if err != nil {
		return Result{}, err
	}
	if m.Private && !opts.AllowPrivate {
		return Result{}, fmt.Errorf("%s: %w", m.Name, plunkerr.ErrPublishRefused)
	}

	var result Result
	err = s.WithEntryLock(m.Name, m.Version, func() error {
		if opts.RunScripts {
			if err := runScript(packageDir, m.Scripts["prepack"], log); err != nil {
				return err
			}
		}

		files, err := packlist.Resolve(m)
		if err != nil {
			return err
		}

		contentHash, err := hashutil.ComputeContentHash(files, packageDir)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", m.Name, err)
		}

		existing, err := s.ReadMeta(m.Name, m.Version)
		if err != nil {
			return err
		}
		if !opts.Force && existing != nil && existing.ContentHash == contentHash {
			result = Result{Name: m.Name, Version: m.Version, ContentHash: contentHash, Skipped: true}
			log.WithFields(logrus.Fields{"name": m.Name, "version": m.Version}).Debug("content unchanged, skipping publish")
			return nil
		}

		dest, err := s.PackageDir(m.Name, m.Version)
		if err != nil {
			return err
		}
		if err := writeSelectedFiles(packageDir, dest, files); err != nil {
			return fmt.Errorf("populating store entry for %s: %w", m.Name, err)
		}

		buildID := opts.BuildID
		if buildID == "" {
			buildID = uuid.NewString()
		}

		meta := store.Meta{
			ContentHash: contentHash,
			PublishedAt: store.Now(),
			SourcePath:  packageDir,
			BuildID:     buildID,
		}
		if err := s.WriteMeta(m.Name, m.Version, meta); err != nil {
			return err
		}

		if opts.RunScripts {
			if err := runScript(packageDir, m.Scripts["postpack"], log); err != nil {
				log.WithError(err).Warn("postpack script failed")
			}
		}

		result = Result{Name: m.Name, Version: m.Version, ContentHash: contentHash, Skipped: false}
		log.WithFields(logrus.Fields{"name": m.Name, "version": m.Version, "buildId": buildID}).Info("published")
		return nil
	})
	return result, err
}

// writeSelectedFiles copies exactly the resolved pack-list files (absolute
// paths under packageDir) into dest, removing anything dest already holds
// that isn't in the new selection (dest may be a stale prior publish of the
// same name@version being overwritten after a content change). It stages
// the selection in a sibling temp directory first so the incremental copier
// can diff against it as a whole tree rather than file-by-file.
func writeSelectedFiles(packageDir, dest string, files []string) error {
	staging, err := os.MkdirTemp(filepath.Dir(dest), ".plunk-stage-*")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, abs := range files {
		rel, err := filepath.Rel(packageDir, abs)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", abs, err)
		}
		dstPath := filepath.Join(staging, rel)
		if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
			return err
		}
		if err := copyFile(abs, dstPath); err != nil {
			return err
		}
	}

	if _, err := copier.IncrementalCopy(staging, dest); err != nil {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}

// runScript executes script (a package.json scripts entry) in packageDir
// through the user's shell, returning plunkerr.ErrScriptFailed on non-zero
// exit with the combined output attached. An empty script is a no-op.
func runScript(packageDir, script string, log *logrus.Entry) error {
	if script == "" {
		return nil
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", script)
	cmd.Dir = packageDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.WithField("script", script).Debug("running package script")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("script %q: %s: %w", script, out.String(), plunkerr.ErrScriptFailed)
	}
	return nil
}
