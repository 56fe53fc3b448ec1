// Package disk keeps the name index and the blob store in agreement.
//
// Disk is the only component allowed to mutate both. Every mutating operation
// touches the index and the store in a fixed order chosen so that a failure
// between the two steps can only leave the index claiming a name that may not
// exist, never hiding a blob that does. Compensation then rolls the index
// back before the error is returned.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/pkg/index"
	"github.com/marmos91/webdisk/pkg/store/blob"
)

// DefaultMaxConcurrentIO bounds concurrent storage calls when Options leaves
// it unset.
const DefaultMaxConcurrentIO = 10

// Options configures a Disk.
type Options struct {
	// MaxConcurrentIO bounds the number of storage calls in flight.
	// Reads hold their slot until the returned reader is closed.
	// Zero or negative selects DefaultMaxConcurrentIO.
	MaxConcurrentIO int

	// Metrics is optional; nil disables metrics collection
	Metrics Metrics
}

// Disk orchestrates a NameIndex and a BlobStore.
//
// Ordering Rules:
//   - Create: reserve a name in the index, then write. Write failure removes
//     the reservation.
//   - Put: validate, then write. Only a successful write adds the name.
//   - Delete: remove from the index, then delete. Delete failure re-adds it.
//   - Read: consult the index, then read. Storage failures are surfaced as
//     ErrIO and never change the index.
//
// Cancellation:
// A cancelled context makes the pending storage call fail, which runs the
// same compensation as any other storage failure. Compensation itself only
// touches the in-memory index and cannot be interrupted.
//
// Thread Safety:
// Safe for concurrent use. Mutating operations on the same name are
// serialized by striped per-name locks held across the index mutation and
// the storage call. The index carries its own lock for lookups.
type Disk struct {
	index   *index.NameIndex
	store   blob.BlobStore
	locks   *nameLocks
	ioSlots *semaphore.Weighted
	metrics Metrics
	tracer  trace.Tracer

	// reserved tracks names handed out by Create whose first write has not
	// finished yet. A Put that lands on such a name claims it, so Create's
	// compensation must leave the index alone.
	reserved sync.Map

	// reservedHook, when set, runs between reservation and write in Create.
	// Tests use it to interleave operations on a reserved name.
	reservedHook func(name string)
}

// New creates a Disk over the given index and store.
func New(idx *index.NameIndex, store blob.BlobStore, opts Options) *Disk {
	maxIO := opts.MaxConcurrentIO
	if maxIO <= 0 {
		maxIO = DefaultMaxConcurrentIO
	}

	var m Metrics = noopMetrics{}
	if opts.Metrics != nil {
		m = opts.Metrics
	}

	return &Disk{
		index:   idx,
		store:   store,
		locks:   newNameLocks(),
		ioSlots: semaphore.NewWeighted(int64(maxIO)),
		metrics: m,
		tracer:  otel.Tracer("webdisk/disk"),
	}
}

// Query returns the read-only facade over this Disk's index.
func (d *Disk) Query() *Query {
	return NewQuery(d.index)
}

// ============================================================================
// Instrumentation helpers
// ============================================================================

func (d *Disk) startSpan(ctx context.Context, operation, name string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("webdisk.operation", operation)}
	if name != "" {
		attrs = append(attrs, attribute.String("webdisk.name", name))
	}
	return d.tracer.Start(ctx, "disk."+operation, trace.WithAttributes(attrs...))
}

func (d *Disk) finish(span trace.Span, operation string, start time.Time, err error) {
	d.metrics.ObserveOperation(operation, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (d *Disk) compensated(operation string) {
	d.metrics.RecordCompensation(operation)
	d.metrics.SetIndexSize(d.index.Size())
}

// withIO runs fn while holding one storage slot. Failing to obtain a slot
// (cancelled context) is reported like a storage failure.
func (d *Disk) withIO(ctx context.Context, fn func() error) error {
	if err := d.ioSlots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.ioSlots.Release(1)
	return fn()
}

// ============================================================================
// Warm-up
// ============================================================================

// WarmUp populates the index from the store's current content.
//
// A List failure is returned unchanged in meaning (wrapped in ErrIO) and
// must abort startup: serving against an index of unknown state would hide
// blobs that exist.
//
// Returns:
//   - time.Duration: Elapsed time of the scan
//   - error: ErrIO if the store could not be listed
func (d *Disk) WarmUp(ctx context.Context) (elapsed time.Duration, err error) {
	ctx, span := d.startSpan(ctx, "warmup", "")
	start := time.Now()
	defer func() {
		d.finish(span, "warmup", start, err)
	}()

	var listed []string
	err = d.withIO(ctx, func() error {
		var listErr error
		listed, listErr = d.store.List(ctx)
		return listErr
	})
	if err != nil {
		elapsed = time.Since(start)
		err = fmt.Errorf("%w: warm-up: %w", ErrIO, err)
		d.metrics.ObserveWarmUp(elapsed, 0, err)
		return elapsed, err
	}

	for _, name := range listed {
		d.index.Add(name)
	}

	elapsed = time.Since(start)
	d.metrics.ObserveWarmUp(elapsed, len(listed), nil)
	d.metrics.SetIndexSize(d.index.Size())
	span.SetAttributes(attribute.Int("webdisk.index_size", d.index.Size()))

	return elapsed, nil
}

// ============================================================================
// Mutating operations
// ============================================================================

// Create stores content under a freshly generated name.
//
// Returns:
//   - string: The generated name, already indexed
//   - error: ErrNameSpaceExhausted, or ErrIO after the reservation was removed
func (d *Disk) Create(ctx context.Context, r io.Reader) (name string, err error) {
	ctx, span := d.startSpan(ctx, "create", "")
	start := time.Now()
	defer func() {
		d.finish(span, "create", start, err)
	}()

	// ========================================================================
	// Step 1: Reserve a unique name (adds it to the index)
	// ========================================================================

	name, err = d.index.GenerateUnique()
	if err != nil {
		return "", err
	}
	d.reserved.Store(name, struct{}{})
	span.SetAttributes(attribute.String("webdisk.name", name))

	if d.reservedHook != nil {
		d.reservedHook(name)
	}

	unlock := d.locks.lock(name)
	defer unlock()

	// ========================================================================
	// Step 2: Write, compensating on failure
	// ========================================================================

	writeErr := d.withIO(ctx, func() error {
		return d.store.Write(ctx, name, r)
	})
	_, stillReserved := d.reserved.LoadAndDelete(name)

	if writeErr != nil {
		if stillReserved {
			d.index.Remove(name)
			d.compensated("create")
			logger.Warn("Create %s: write failed, reservation released: %v", name, writeErr)
		}
		return "", fmt.Errorf("%w: create %s: %w", ErrIO, name, writeErr)
	}

	// A Delete racing the reservation may have dropped the name while the
	// write was pending; the blob now exists, so make sure the index says so.
	d.index.Add(name)
	d.metrics.SetIndexSize(d.index.Size())

	return name, nil
}

// Put creates or replaces the blob stored under a client-chosen name.
//
// The name is validated before anything else; an invalid name never reaches
// storage. On write failure the index is left untouched: an existing entry
// still describes the unchanged blob, and a new name was never written.
//
// Returns:
//   - error: ErrInvalidName or ErrIO
func (d *Disk) Put(ctx context.Context, name string, r io.Reader) (err error) {
	ctx, span := d.startSpan(ctx, "put", name)
	start := time.Now()
	defer func() {
		d.finish(span, "put", start, err)
	}()

	if !d.index.IsValid(name) {
		return fmt.Errorf("put %q: %w", name, ErrInvalidName)
	}

	unlock := d.locks.lock(name)
	defer unlock()

	if err = d.withIO(ctx, func() error {
		return d.store.Write(ctx, name, r)
	}); err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrIO, name, err)
	}

	d.reserved.Delete(name)
	if d.index.Add(name) {
		d.metrics.SetIndexSize(d.index.Size())
	}

	return nil
}

// Delete removes the named blob.
//
// Returns:
//   - error: ErrNotFound if the name is not indexed (storage untouched) or
//     storage no longer has it; ErrIO after the name was re-indexed
func (d *Disk) Delete(ctx context.Context, name string) (err error) {
	ctx, span := d.startSpan(ctx, "delete", name)
	start := time.Now()
	defer func() {
		d.finish(span, "delete", start, err)
	}()

	unlock := d.locks.lock(name)
	defer unlock()

	if !d.index.Contains(name) {
		return fmt.Errorf("delete %q: %w", name, ErrNotFound)
	}

	// ========================================================================
	// Step 1: Hide the name first
	// ========================================================================

	d.index.Remove(name)

	// ========================================================================
	// Step 2: Delete, compensating on failure
	// ========================================================================

	deleteErr := d.withIO(ctx, func() error {
		return d.store.Delete(ctx, name)
	})
	if deleteErr == nil {
		d.metrics.SetIndexSize(d.index.Size())
		return nil
	}

	if errors.Is(deleteErr, blob.ErrBlobNotFound) {
		// The blob vanished out-of-band. Both sides now agree it is gone.
		logger.Warn("Delete %s: indexed name had no blob: %v", name, deleteErr)
		d.metrics.SetIndexSize(d.index.Size())
		return fmt.Errorf("delete %s: %w: %v", name, ErrNotFound, deleteErr)
	}

	d.index.Add(name)
	d.compensated("delete")
	logger.Warn("Delete %s: storage delete failed, name restored: %v", name, deleteErr)

	return fmt.Errorf("%w: delete %s: %w", ErrIO, name, deleteErr)
}

// ============================================================================
// Read
// ============================================================================

// Read opens the named blob.
//
// A name missing from the index is reported without touching storage. A
// storage failure for an indexed name (for example a file removed
// out-of-band) is returned as ErrIO and the stale entry is kept, so that a
// transient outage is never mistaken for data loss.
//
// The returned reader holds a storage slot until it is closed.
//
// Returns:
//   - io.ReadCloser: Blob content
//   - error: ErrNotFound or ErrIO
func (d *Disk) Read(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	ctx, span := d.startSpan(ctx, "read", name)
	start := time.Now()
	defer func() {
		d.finish(span, "read", start, err)
	}()

	if !d.index.Contains(name) {
		return nil, fmt.Errorf("read %q: %w", name, ErrNotFound)
	}

	if err = d.ioSlots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, name, err)
	}

	reader, err := d.store.Read(ctx, name)
	if err != nil {
		d.ioSlots.Release(1)
		logger.Error("Read %s: indexed name could not be read: %v", name, err)
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, name, err)
	}

	return &slotReadCloser{ReadCloser: reader, release: func() { d.ioSlots.Release(1) }}, nil
}

// slotReadCloser returns its storage slot on the first Close.
type slotReadCloser struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (s *slotReadCloser) Close() error {
	err := s.ReadCloser.Close()
	s.once.Do(s.release)
	return err
}
