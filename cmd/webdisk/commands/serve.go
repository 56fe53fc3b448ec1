package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/pkg/config"
	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/index"
	"github.com/marmos91/webdisk/pkg/server"
	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/marmos91/webdisk/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDisk server",
	Long: `Start the WebDisk server.

The name index is rebuilt from the configured blob store before the HTTP
adapter starts accepting requests. SIGINT or SIGTERM triggers a graceful
shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Logging.Level != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	store, err := config.CreateBlobStore(ctx, &cfg.Store, metricsResult.S3Metrics)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	srv, err := newServer(cfg, store, metricsResult)
	if err != nil {
		return err
	}

	logger.Info("WebDisk %s starting (store: %s)", Version, cfg.Store.Type)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}

// newServer builds the Disk over store and registers every configured
// adapter. On error store is closed; otherwise the server closes it when
// Serve returns.
func newServer(cfg *config.Config, store blob.BlobStore, metricsResult *config.MetricsResult) (_ *server.WebDiskServer, err error) {
	defer func() {
		if err != nil {
			closeStore(store)
		}
	}()

	d := disk.New(index.New(), store, disk.Options{
		MaxConcurrentIO: cfg.Server.MaxConcurrentIO,
		Metrics:         metricsResult.DiskMetrics,
	})

	srv := server.New(d, store, server.Options{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WarmupTimeout:   cfg.Server.WarmupTimeout,
		Location:        config.StoreLocation(&cfg.Store),
	})

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return nil, err
	}
	for _, a := range adapters {
		if err = srv.AddAdapter(a); err != nil {
			return nil, fmt.Errorf("failed to register %s adapter: %w", a.Protocol(), err)
		}
	}

	return srv, nil
}

// closeStore releases stores holding resources (badger).
func closeStore(store blob.BlobStore) {
	closer, ok := store.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Error closing blob store: %v", err)
	}
}
