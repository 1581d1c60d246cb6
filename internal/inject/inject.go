// Package inject implements the injector pipeline (C10): materializing a
// store entry into a consumer's dependency directory, linking its bin
// entries, and invalidating the bundler caches that would otherwise serve a
// stale copy from memory.
package inject

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/etnz/plunk/internal/copier"
	"github.com/etnz/plunk/internal/manifest"
	"github.com/etnz/plunk/internal/pathenc"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/store"
)

// knownCacheDirs lists bundler cache directories, relative to a consumer
// root, that hold a stale in-memory or on-disk copy of an injected package
// until invalidated.
var knownCacheDirs = []string{
	filepath.Join("node_modules", ".vite"),
	filepath.Join(".next", "cache"),
	filepath.Join("node_modules", ".cache"),
}

// Options configures a single inject call.
type Options struct {
	BackupExisting bool
}

// Result reports what Inject did.
type Result struct {
	TargetDir       string
	Copied          int
	Removed         int
	Skipped         int
	BinShims        []string
	InvalidatedDirs []string
}

// Inject resolves consumerPath's install directory for entry.Name under pm,
// optionally backs up any existing install, performs an incremental copy
// from the store entry's package directory, links bin shims from the
// published manifest, and invalidates recognizable bundler caches.
func Inject(consumerPath string, entry *store.Entry, pm pmlayout.PackageManager, opts Options, log *logrus.Entry) (Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	targetDir, err := pmlayout.InstallDir(consumerPath, entry.Name, pm)
	if err != nil {
		return Result{}, fmt.Errorf("resolving install dir for %s: %w", entry.Name, err)
	}

	if opts.BackupExisting {
		if err := backupExisting(consumerPath, entry.Name, targetDir); err != nil {
			return Result{}, fmt.Errorf("backing up %s: %w", entry.Name, err)
		}
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", targetDir, err)
	}

	copyResult, err := copier.IncrementalCopy(entry.PackageDir, targetDir)
	if err != nil {
		return Result{}, fmt.Errorf("copying %s into %s: %w", entry.Name, targetDir, err)
	}

	result := Result{
		TargetDir: targetDir,
		Copied:    copyResult.Copied,
		Removed:   copyResult.Removed,
		Skipped:   copyResult.Skipped,
	}

	shims, err := linkBins(consumerPath, targetDir, log)
	if err != nil {
		log.WithError(err).Warn("bin shim creation failed")
	} else {
		result.BinShims = shims
	}

	result.InvalidatedDirs = invalidateBundlerCaches(consumerPath, log)

	return result, nil
}

// backupExisting snapshots targetDir into consumerPath/.plunk/backup/<enc>,
// a no-op if targetDir doesn't yet exist.
func backupExisting(consumerPath, name, targetDir string) error {
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		return nil
	}

	backupDir := filepath.Join(consumerPath, ".plunk", "backup", pathenc.Encode(name))
	if err := os.RemoveAll(backupDir); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(backupDir), 0755); err != nil {
		return err
	}
	if _, err := copier.IncrementalCopy(targetDir, backupDir); err != nil {
		return err
	}
	return nil
}

// linkBins reads targetDir's own manifest and creates a launcher in
// consumerPath/node_modules/.bin for each "bin" entry.
func linkBins(consumerPath, targetDir string, log *logrus.Entry) ([]string, error) {
	m, err := manifest.Load(targetDir)
	if err != nil {
		return nil, nil
	}
	bins, err := m.Bins()
	if err != nil || len(bins) == 0 {
		return nil, err
	}

	binDir := filepath.Join(consumerPath, "node_modules", ".bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", binDir, err)
	}

	var shims []string
	for cmdName, relTarget := range bins {
		target := filepath.Join(targetDir, filepath.FromSlash(relTarget))
		if err := createShim(binDir, cmdName, target); err != nil {
			log.WithFields(logrus.Fields{"bin": cmdName}).WithError(err).Warn("failed to create bin shim")
			continue
		}
		shims = append(shims, cmdName)
	}
	return shims, nil
}

// createShim creates a launcher named cmdName in binDir that runs target:
// a POSIX symlink with the executable bit set, or on Windows a .cmd/.ps1
// shim pair that calls node on the target script.
func createShim(binDir, cmdName, target string) error {
	if runtime.GOOS == "windows" {
		return createWindowsShim(binDir, cmdName, target)
	}
	return createPosixShim(binDir, cmdName, target)
}

func createPosixShim(binDir, cmdName, target string) error {
	link := filepath.Join(binDir, cmdName)
	os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return err
	}
	return os.Chmod(target, 0755)
}

func createWindowsShim(binDir, cmdName, target string) error {
	cmdShim := filepath.Join(binDir, cmdName+".cmd")
	cmdContent := fmt.Sprintf("@node \"%s\" %%*\n", target)
	if err := os.WriteFile(cmdShim, []byte(cmdContent), 0644); err != nil {
		return err
	}

	ps1Shim := filepath.Join(binDir, cmdName+".ps1")
	ps1Content := fmt.Sprintf("node \"%s\" @args\n", target)
	return os.WriteFile(ps1Shim, []byte(ps1Content), 0644)
}

// invalidateBundlerCaches removes any of knownCacheDirs present under
// consumerPath; a missing directory is skipped, and one that cannot be
// removed (e.g. lock-contended) is logged, not fatal.
func invalidateBundlerCaches(consumerPath string, log *logrus.Entry) []string {
	var invalidated []string
	for _, rel := range knownCacheDirs {
		dir := filepath.Join(consumerPath, rel)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			log.WithFields(logrus.Fields{"dir": dir}).WithError(err).Warn("failed to invalidate bundler cache")
			continue
		}
		invalidated = append(invalidated, rel)
	}
	return invalidated
}

// RemoveInjected undoes a prior injection: removes bin shims listed in the
// target's manifest, then deletes the install directory entirely.
func RemoveInjected(consumerPath, name string, pm pmlayout.PackageManager) error {
	targetDir, err := pmlayout.InstallDir(consumerPath, name, pm)
	if err != nil {
		return fmt.Errorf("resolving install dir for %s: %w", name, err)
	}

	if m, err := manifest.Load(targetDir); err == nil {
		if bins, err := m.Bins(); err == nil {
			binDir := filepath.Join(consumerPath, "node_modules", ".bin")
			for cmdName := range bins {
				os.Remove(filepath.Join(binDir, cmdName))
				os.Remove(filepath.Join(binDir, cmdName+".cmd"))
				os.Remove(filepath.Join(binDir, cmdName+".ps1"))
			}
		}
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("removing %s: %w", targetDir, err)
	}
	return nil
}

// RestoreBackup undoes the initial backup taken for name: the current
// install directory is removed and the backup moved into its place.
func RestoreBackup(consumerPath, name string, pm pmlayout.PackageManager) error {
	targetDir, err := pmlayout.InstallDir(consumerPath, name, pm)
	if err != nil {
		return fmt.Errorf("resolving install dir for %s: %w", name, err)
	}
	backupDir := filepath.Join(consumerPath, ".plunk", "backup", pathenc.Encode(name))

	if _, err := os.Stat(backupDir); os.IsNotExist(err) {
		return fmt.Errorf("no backup found for %s", name)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("removing %s: %w", targetDir, err)
	}
	if err := os.Rename(backupDir, targetDir); err != nil {
		return fmt.Errorf("restoring backup for %s: %w", name, err)
	}
	return nil
}
