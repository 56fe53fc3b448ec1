package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/internal/ratelimiter"
	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/metrics"
)

// HTTPAdapter exposes a Disk over HTTP.
//
// Routes are registered on a gin engine built in New. The engine needs the
// Disk only at request time, so SetDisk may run after New but must run
// before Serve.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. http.Server.Shutdown stops accepting connections
//  3. In-flight requests get up to ShutdownTimeout to complete
//  4. Remaining connections are closed
type HTTPAdapter struct {
	config  HTTPConfig
	metrics metrics.HTTPMetrics
	limiter *ratelimiter.PerClient

	engine *gin.Engine
	server *http.Server

	disk  *disk.Disk
	query *disk.Query

	mu       sync.Mutex
	listener net.Listener

	stopOnce    sync.Once
	shutdownErr error
	stopped     chan struct{}
	ready       chan struct{}
}

// New creates an HTTP adapter. It panics on an invalid configuration, since
// configuration is validated before adapters are built.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	a := &HTTPAdapter{
		config:  config,
		metrics: httpMetrics,
		limiter: ratelimiter.NewPerClient(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst, 0),
		stopped: make(chan struct{}),
		ready:   make(chan struct{}),
	}
	a.engine = a.routes()
	a.server = &http.Server{
		Handler:      a.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return a
}

// routes builds the gin engine. Static routes are registered before the
// name parameter, so a blob literally named "size" or "search" is shadowed
// by the corresponding endpoint on GET.
func (a *HTTPAdapter) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		requestID(),
		tracing(),
		accessLog(),
		instrument(a.metrics),
		rateLimit(a.limiter, a.metrics),
	)

	files := engine.Group("/files")
	files.GET("/size", a.handleSize)
	files.GET("/search", a.handleSearch)
	files.GET("/restricted", bearerAuth(), a.handleRestricted)
	files.POST("/upload", a.handleUpload)
	files.GET("/:name", a.handleDownload)
	files.HEAD("/:name", a.handleExists)
	files.PUT("/:name", a.handlePut)
	files.DELETE("/:name", a.handleDelete)

	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "No such route")
	})
	return engine
}

// SetDisk injects the Disk served by this adapter.
func (a *HTTPAdapter) SetDisk(d *disk.Disk) {
	a.disk = d
	a.query = d.Query()
	logger.Debug("HTTP disk configured")
}

// Handler returns the HTTP handler, for embedding or tests.
func (a *HTTPAdapter) Handler() http.Handler {
	return a.engine
}

// Serve listens on the configured port and blocks until ctx is cancelled or
// Stop is called.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	if a.disk == nil {
		return errors.New("HTTP adapter started without a disk")
	}

	addr := fmt.Sprintf(":%d", a.config.Port)
	if a.config.Port < 0 {
		addr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", addr, err)
	}

	a.mu.Lock()
	a.listener = listener
	a.mu.Unlock()
	close(a.ready)

	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: read_timeout=%v write_timeout=%v idle_timeout=%v max_upload_bytes=%d rate_limit=%d/s",
		a.config.ReadTimeout, a.config.WriteTimeout, a.config.IdleTimeout,
		a.config.MaxUploadBytes, a.config.RateLimit.RequestsPerSecond)

	// The watcher exits with Serve, whichever of ctx or Stop ends it
	serveDone := make(chan struct{})
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
			defer cancel()
			_ = a.Stop(shutdownCtx)
		case <-a.stopped:
		case <-serveDone:
		}
	}()

	err = a.server.Serve(listener)
	close(serveDone)
	watcher.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		<-a.stopped
		return a.stopErr()
	}
	return fmt.Errorf("HTTP server error: %w", err)
}

// Stop gracefully shuts down the server. Safe to call multiple times.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		defer close(a.stopped)
		logger.Debug("HTTP graceful shutdown started")
		err := a.server.Shutdown(ctx)
		if err != nil {
			logger.Warn("HTTP shutdown did not complete cleanly: %v", err)
			_ = a.server.Close()
			a.mu.Lock()
			a.shutdownErr = fmt.Errorf("HTTP shutdown: %w", err)
			a.mu.Unlock()
			return
		}
		logger.Info("HTTP server stopped")
	})
	return a.stopErr()
}

func (a *HTTPAdapter) stopErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shutdownErr
}

// Addr returns the bound listener address once Serve is listening.
// It blocks until then or until ctx is done.
func (a *HTTPAdapter) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-a.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listener.Addr(), nil
}

// Protocol returns "HTTP".
func (a *HTTPAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the configured port.
func (a *HTTPAdapter) Port() int {
	return a.config.Port
}
