//go:build !linux

package copier

import "errors"

// reflinkCopy has no portable equivalent outside Linux's FICLONE; callers
// always fall back to a plain byte copy.
func reflinkCopy(src, dst string) error {
	return errors.New("reflink copy not supported on this platform")
}
