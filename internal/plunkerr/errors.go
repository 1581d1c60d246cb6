// Package plunkerr defines the sentinel error kinds surfaced across plunk's
// publish/inject/update pipeline. Call sites wrap a sentinel with fmt.Errorf's
// %w verb to attach package, version, or path context; callers test the kind
// with errors.Is.
package plunkerr

import "errors"

var (
	// ErrNotFound indicates a missing package directory, store entry, or link.
	ErrNotFound = errors.New("not found")

	// ErrInvalidManifest indicates a manifest with missing or malformed required fields.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrPublishRefused indicates a private package was published without allowPrivate.
	ErrPublishRefused = errors.New("publish refused")

	// ErrScriptFailed indicates a prepack, postpack, or build script exited non-zero.
	ErrScriptFailed = errors.New("script failed")

	// ErrLockBusy indicates the cross-process lock could not be acquired within retries.
	ErrLockBusy = errors.New("lock busy")

	// ErrIO wraps an underlying filesystem failure.
	ErrIO = errors.New("io error")

	// ErrCorruption indicates metadata failed validation. Call sites treat this
	// as ErrNotFound but log it, since corruption should self-heal on republish.
	ErrCorruption = errors.New("corruption")
)
