// Package builderr defines the error taxonomy shared by every build stage.
// Every error returned from the pipeline wraps exactly one of the sentinels
// below, so callers classify failures with errors.Is.
package builderr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks an invalid build target: no supported OS, more
	// than one backend, or an unknown backend name.
	ErrConfiguration = errors.New("configuration error")
	// ErrPatchInvariant marks a third-party source that no longer contains
	// the text a patch step depends on.
	ErrPatchInvariant = errors.New("patch invariant violation")
	// ErrToolchain marks a failing compiler, archiver or linker invocation.
	ErrToolchain = errors.New("toolchain error")
	// ErrFilesystem marks unreadable inputs or unwritable outputs.
	ErrFilesystem = errors.New("filesystem error")
)

// Configuration returns a formatted error wrapping ErrConfiguration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Filesystem wraps err as a filesystem failure on path.
func Filesystem(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrFilesystem, op, path, err)
}
