// Package hashutil implements plunk's two-tier file hashing scheme (C1):
// a fast 64-bit digest for small files and a cryptographic SHA-256 stream
// for large ones, combined into a single order-independent aggregate digest
// per package.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// smallFileThreshold is the size, in bytes, at or under which hashFile uses
// the fast non-cryptographic digest instead of streaming SHA-256.
const smallFileThreshold = 1 << 20 // 1 MiB

// ContentHashPrefix tags the aggregate digest format so future hashing
// schemes can be distinguished without ambiguity.
const ContentHashPrefix = "sha256v2:"

// HashFile returns the hex digest of the file at path. Files at or under
// smallFileThreshold are read fully into memory and hashed with xxhash
// (16 lowercase hex chars); larger files are streamed through SHA-256
// (64 lowercase hex chars). The two tiers never collide because their hex
// lengths differ.
func HashFile(path string, size int64) (string, error) {
	if size < 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		size = info.Size()
	}

	if size <= smallFileThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		sum := xxhash.Sum64(data)
		return fmt.Sprintf("%016x", sum), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileEntry is one file's contribution to an aggregate content hash.
type FileEntry struct {
	RelPath string
	Size    int64
	Hex     string
}

// ComputeContentHash hashes every file in files (absolute paths) relative to
// rootDir, sorts the resulting entries by relative path, and folds them into
// a single SHA-256 accumulator keyed by "relPath\nsize\nperFileHex\n". The
// result is order-independent in files and change-sensitive to any content,
// path, or size delta.
func ComputeContentHash(files []string, rootDir string) (string, error) {
	entries := make([]FileEntry, 0, len(files))
	for _, abs := range files {
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", abs, err)
		}
		rel, err := filepath.Rel(rootDir, abs)
		if err != nil {
			return "", fmt.Errorf("relativize %s: %w", abs, err)
		}
		rel = filepath.ToSlash(rel)

		digest, err := HashFile(abs, info.Size())
		if err != nil {
			return "", err
		}
		entries = append(entries, FileEntry{RelPath: rel, Size: info.Size(), Hex: digest})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })

	acc := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(acc, "%s\n%d\n%s\n", e.RelPath, e.Size, e.Hex)
	}

	var b strings.Builder
	b.WriteString(ContentHashPrefix)
	b.WriteString(hex.EncodeToString(acc.Sum(nil)))
	return b.String(), nil
}
