package blob

import "errors"

// ============================================================================
// Standard Blob Store Errors
// ============================================================================

// These errors give every BlobStore implementation a consistent way to report
// common failure conditions. Implementations wrap them with context:
//
//	if !exists {
//	    return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
//	}
//
// Callers check with errors.Is. Anything else returned by a store is an I/O
// failure.

var (
	// ErrBlobNotFound indicates the requested blob does not exist.
	//
	// Returned by Read and Delete.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidName indicates a name that fails the name syntax reached the
	// store. The disk package validates names before calling a store, so this
	// signals a programming error rather than bad client input.
	ErrInvalidName = errors.New("invalid blob name")
)
