package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/pkg/adapter"
	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/store/blob"
)

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server: Serve already called")

// Options tunes the server lifecycle.
type Options struct {
	// ShutdownTimeout bounds the graceful stop of all adapters.
	ShutdownTimeout time.Duration

	// WarmupTimeout bounds the initial listing of the blob store.
	WarmupTimeout time.Duration

	// Location describes the blob store for startup logs.
	Location string
}

// WebDiskServer coordinates the Disk and the adapters exposing it.
//
// Serve first warms the Disk up from its blob store. Warm-up failure is
// fatal: no adapter starts listening against an index that does not mirror
// storage. Once the index is built, every adapter receives the Disk and is
// started in its own goroutine.
//
// If any adapter fails, all adapters are stopped. Adapters are stopped in
// reverse registration order.
type WebDiskServer struct {
	disk  *disk.Disk
	store blob.BlobStore
	opts  Options

	adapters []adapter.Adapter

	mu     sync.Mutex
	served bool
}

// New creates a server for d, whose blob store is store. The store is
// closed on shutdown when it implements io.Closer.
func New(d *disk.Disk, store blob.BlobStore, opts Options) *WebDiskServer {
	if d == nil {
		panic("disk cannot be nil")
	}
	if store == nil {
		panic("blob store cannot be nil")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if opts.WarmupTimeout <= 0 {
		opts.WarmupTimeout = 5 * time.Minute
	}

	return &WebDiskServer{
		disk:     d,
		store:    store,
		opts:     opts,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers an adapter. Must be called before Serve.
//
// Returns an error if an adapter for the same protocol or the same fixed
// port is already registered.
func (s *WebDiskServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		return errors.New("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return errors.New("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		// Negative ports bind ephemeral ports and never clash
		if port > 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve warms up the Disk, starts all adapters and blocks until ctx is
// cancelled or an adapter fails.
//
// Returns nil after a shutdown triggered by ctx, the warm-up error if the
// index could not be built, or the first adapter error.
func (s *WebDiskServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	defer s.closeStore()

	if err := s.warmUp(ctx); err != nil {
		return err
	}

	for _, a := range adapters {
		a.SetDisk(s.disk)
	}

	logger.Info("Starting WebDisk with %d adapter(s)", len(adapters))

	// Run adapters under a child context so one failure stops the rest
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(runCtx)
			switch {
			case err != nil && runCtx.Err() == nil:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			case err != nil:
				logger.Debug("%s adapter stopped during shutdown: %v", protocol, err)
			default:
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		serveErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("WebDisk stopped")
	return serveErr
}

// warmUp rebuilds the index from storage within WarmupTimeout.
func (s *WebDiskServer) warmUp(ctx context.Context) error {
	logger.Info("Initializing index from %s", s.opts.Location)

	warmCtx, cancel := context.WithTimeout(ctx, s.opts.WarmupTimeout)
	defer cancel()

	elapsed, err := s.disk.WarmUp(warmCtx)
	if err != nil {
		logger.Error("Unable to read from storage location %s: %v", s.opts.Location, err)
		return fmt.Errorf("warm-up failed: %w", err)
	}

	logger.Info("Index initialized in %d ms", elapsed.Milliseconds())
	logger.Info("Index size: %d", s.disk.Query().Size())
	return nil
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops every adapter within ShutdownTimeout, last
// registered first.
func (s *WebDiskServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

func (s *WebDiskServer) closeStore() {
	closer, ok := s.store.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Error closing blob store: %v", err)
	}
}

// Adapters returns a copy of the registered adapters.
func (s *WebDiskServer) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
