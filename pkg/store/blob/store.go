// Package blob defines the durable byte-level storage contract for WebDisk.
//
// A BlobStore holds opaque content keyed by name. It knows nothing about the
// name index: keeping the two in agreement is the job of the disk package.
package blob

import (
	"context"
	"io"
)

// ============================================================================
// BlobStore Interface
// ============================================================================

// BlobStore provides whole-object storage of named blobs.
//
// The interface abstracts the storage mechanism (local filesystem, S3,
// embedded key-value store, memory) behind four operations. Every
// implementation follows the same layout rule: one object per name, the
// object key equal to the name, no sub-directories and no sidecar metadata.
//
// Names:
// Callers pass names that already satisfy names.IsValid. Implementations
// reject anything else with ErrInvalidName as a guard, but do not escape or
// sanitize names in any other way: the restricted alphabet is the only
// defense against path traversal.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same name are last-writer-wins; per-name ordering
// between the index and the store is enforced by the caller.
type BlobStore interface {
	// List enumerates the names of all stored blobs.
	//
	// Entries whose key does not satisfy the name syntax (temp files,
	// sub-directories, unrelated objects) are skipped silently rather than
	// reported as errors, so unrelated files can coexist with the store.
	//
	// Returns:
	//   - []string: Names in unspecified order
	//   - error: Storage access failure or context cancellation
	List(ctx context.Context) ([]string, error)

	// Read returns a reader for the full content of the named blob.
	//
	// The caller must close the returned reader.
	//
	// Returns:
	//   - io.ReadCloser: Content reader
	//   - error: ErrBlobNotFound if the blob does not exist, or an I/O error
	Read(ctx context.Context, name string) (io.ReadCloser, error)

	// Write stores the content read from r under name, creating the blob or
	// replacing its content.
	//
	// Atomicity:
	// A failed or cancelled write never leaves a partially written blob
	// visible under name. If the blob existed before, its previous content
	// stays intact on failure.
	//
	// Returns:
	//   - error: I/O error, reader error or context cancellation
	Write(ctx context.Context, name string, r io.Reader) error

	// Delete removes the named blob.
	//
	// Unlike many object stores, deletion is not idempotent here: deleting a
	// missing blob is reported so that callers can tell a true delete from a
	// no-op.
	//
	// Returns:
	//   - error: ErrBlobNotFound if the blob does not exist, or an I/O error
	Delete(ctx context.Context, name string) error
}
