package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/index"
	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/marmos91/webdisk/pkg/store/blob/memory"
)

// fakeAdapter blocks in Serve until its context is cancelled or Stop runs.
type fakeAdapter struct {
	protocol string
	port     int
	failWith error

	mu      sync.Mutex
	disk    *disk.Disk
	started chan struct{}
	stopped chan struct{}
	once    sync.Once
	stops   atomic.Int32
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{
		protocol: protocol,
		port:     port,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	close(f.started)
	if f.failWith != nil {
		return f.failWith
	}
	select {
	case <-ctx.Done():
	case <-f.stopped:
	}
	return nil
}

func (f *fakeAdapter) SetDisk(d *disk.Disk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disk = d
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.stops.Add(1)
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func (f *fakeAdapter) injectedDisk() *disk.Disk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disk
}

// closingStore records Close calls.
type closingStore struct {
	blob.BlobStore
	closed atomic.Bool
}

func (c *closingStore) Close() error {
	c.closed.Store(true)
	return nil
}

// failingListStore cannot be listed.
type failingListStore struct {
	blob.BlobStore
}

func (failingListStore) List(context.Context) ([]string, error) {
	return nil, errors.New("permission denied")
}

func newServer(t *testing.T, store blob.BlobStore) (*WebDiskServer, *disk.Disk) {
	t.Helper()
	d := disk.New(index.New(), store, disk.Options{})
	return New(d, store, Options{ShutdownTimeout: time.Second, Location: "memory"}), d
}

func TestServe_WarmsUpThenStartsAdapters(t *testing.T) {
	store := memory.NewMemoryBlobStore()
	require.NoError(t, store.Write(context.Background(), "existing", strings.NewReader("x")))

	srv, d := newServer(t, store)
	a := newFakeAdapter("HTTP", 8080)
	require.NoError(t, srv.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-a.started:
	case <-time.After(5 * time.Second):
		t.Fatal("adapter was not started")
	}

	assert.Same(t, d, a.injectedDisk())
	assert.True(t, d.Query().Exists("existing"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.GreaterOrEqual(t, a.stops.Load(), int32(1))
}

func TestServe_WarmUpFailureIsFatal(t *testing.T) {
	srv, _ := newServer(t, failingListStore{memory.NewMemoryBlobStore()})
	a := newFakeAdapter("HTTP", 8080)
	require.NoError(t, srv.AddAdapter(a))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.True(t, disk.IsIOError(err))

	select {
	case <-a.started:
		t.Fatal("adapter must not start after a failed warm-up")
	default:
	}
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	srv, _ := newServer(t, memory.NewMemoryBlobStore())

	healthy := newFakeAdapter("HTTP", 8080)
	broken := newFakeAdapter("GRPC", 9000)
	broken.failWith = errors.New("bind: address already in use")

	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GRPC adapter error")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after adapter failure")
	}
	assert.GreaterOrEqual(t, healthy.stops.Load(), int32(1))
}

// serveUntilStarted runs Serve, waits for a to start, then cancels and
// returns Serve's result.
func serveUntilStarted(t *testing.T, srv *WebDiskServer, a *fakeAdapter) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-a.started:
	case <-time.After(5 * time.Second):
		t.Fatal("adapter was not started")
	}
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestServe_ClosesStore(t *testing.T) {
	store := &closingStore{BlobStore: memory.NewMemoryBlobStore()}
	srv, _ := newServer(t, store)
	a := newFakeAdapter("HTTP", 8080)
	require.NoError(t, srv.AddAdapter(a))

	require.NoError(t, serveUntilStarted(t, srv, a))
	assert.True(t, store.closed.Load())
}

func TestServe_OnlyOnce(t *testing.T) {
	srv, _ := newServer(t, memory.NewMemoryBlobStore())
	a := newFakeAdapter("HTTP", 8080)
	require.NoError(t, srv.AddAdapter(a))

	require.NoError(t, serveUntilStarted(t, srv, a))

	assert.ErrorIs(t, srv.Serve(context.Background()), ErrAlreadyServed)
	assert.Error(t, srv.AddAdapter(newFakeAdapter("GRPC", 9000)))
}

func TestServe_NoAdapters(t *testing.T) {
	srv, _ := newServer(t, memory.NewMemoryBlobStore())
	assert.Error(t, srv.Serve(context.Background()))
}

func TestAddAdapter_RejectsDuplicates(t *testing.T) {
	srv, _ := newServer(t, memory.NewMemoryBlobStore())
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 8080)))

	assert.Error(t, srv.AddAdapter(newFakeAdapter("HTTP", 8081)), "duplicate protocol")
	assert.Error(t, srv.AddAdapter(newFakeAdapter("GRPC", 8080)), "duplicate port")
	assert.NoError(t, srv.AddAdapter(newFakeAdapter("GRPC", -1)))
	assert.Error(t, srv.AddAdapter(nil))
	assert.Len(t, srv.Adapters(), 2)
}
