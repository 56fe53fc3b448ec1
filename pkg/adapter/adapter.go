package adapter

import (
	"context"

	"github.com/marmos91/webdisk/pkg/disk"
)

// Adapter is a client-facing transport managed by the WebDisk server.
//
// Each adapter exposes the same Disk through a specific protocol. All
// adapters share one Disk, so an upload through one transport is visible
// through every other.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//  2. Injection: SetDisk() provides the shared Disk after warm-up
//  3. Startup: Serve() starts listening and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetDisk() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the transport and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// If Serve returns before context cancellation, the server treats it as
	// a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// SetDisk injects the shared Disk. Called exactly once, before Serve().
	SetDisk(d *disk.Disk)

	// Stop initiates graceful shutdown. Must be idempotent and safe to call
	// concurrently with Serve().
	Stop(ctx context.Context) error

	// Protocol returns the transport name for logging and metrics ("HTTP").
	Protocol() string

	// Port returns the configured listening port.
	Port() int
}
