package disk

import (
	"errors"

	"github.com/marmos91/webdisk/pkg/index"
)

// ============================================================================
// Error Taxonomy
// ============================================================================
//
// Every error returned by Disk and Query matches exactly one of the sentinels
// below via errors.Is. Client errors (ErrInvalidName, ErrInvalidPattern,
// ErrNotFound) are detected before any state is mutated. Server errors
// (ErrNameSpaceExhausted, ErrIO) are returned only after compensation has
// restored the index.

var (
	// ErrInvalidName indicates a name that fails the name syntax check.
	// Storage is never touched.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidPattern indicates a malformed search expression.
	ErrInvalidPattern = index.ErrInvalidPattern

	// ErrNotFound indicates the name is absent from the index, or, for
	// Delete, absent from storage.
	ErrNotFound = errors.New("not found")

	// ErrNameSpaceExhausted indicates unique-name generation gave up after
	// the bounded number of attempts. Treat it as a capacity alarm.
	ErrNameSpaceExhausted = index.ErrNameSpaceExhausted

	// ErrIO wraps every underlying storage failure, including cancellation
	// of a storage call.
	ErrIO = errors.New("storage I/O error")
)

// IsIOError reports whether err is a storage failure.
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}
