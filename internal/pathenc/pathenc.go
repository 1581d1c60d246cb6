// Package pathenc encodes package names into filesystem-safe segments and
// back (C3). Scoped names ("@scope/name") contain a path separator that
// can't appear in a single directory segment; Encode replaces it with "+",
// and Decode is the exact inverse.
package pathenc

import "strings"

// Encode replaces the single "/" in a scoped package name with "+" so the
// name can be used as one filesystem path segment. Unscoped names pass
// through unchanged.
func Encode(name string) string {
	return strings.Replace(name, "/", "+", 1)
}

// Decode is the inverse of Encode: it restores the "/" in a scoped,
// encoded package name. Unscoped names pass through unchanged.
func Decode(encoded string) string {
	return strings.Replace(encoded, "+", "/", 1)
}
