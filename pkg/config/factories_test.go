package config

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/webdisk/pkg/adapter/web"
)

func TestCreateBlobStore_Filesystem(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "filesystem",
		Filesystem: map[string]any{
			"path": t.TempDir(),
		},
	}

	store, err := CreateBlobStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create filesystem blob store: %v", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected empty store, got %v", names)
	}
}

func TestCreateBlobStore_FilesystemMissingPath(t *testing.T) {
	cfg := &StoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	_, err := CreateBlobStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateBlobStore_Memory(t *testing.T) {
	cfg := &StoreConfig{Type: "memory"}

	store, err := CreateBlobStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory blob store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateBlobStore_Badger(t *testing.T) {
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"path": filepath.Join(t.TempDir(), "blobs.db"),
		},
	}

	store, err := CreateBlobStore(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create badger blob store: %v", err)
	}
	if closer, ok := store.(io.Closer); ok {
		t.Cleanup(func() { _ = closer.Close() })
	} else {
		t.Error("Expected badger store to be closable")
	}
}

func TestCreateBlobStore_S3MissingBucket(t *testing.T) {
	cfg := &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateBlobStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateBlobStore_S3MissingRegion(t *testing.T) {
	cfg := &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "webdisk"},
	}

	_, err := CreateBlobStore(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateBlobStore_UnknownType(t *testing.T) {
	_, err := CreateBlobStore(context.Background(), &StoreConfig{Type: "tape"}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown blob store type") {
		t.Errorf("Expected 'unknown blob store type' error, got: %v", err)
	}
}

func TestNewS3Client_CustomEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3Options{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3Client failed: %v", err)
	}

	opts := client.Options()
	if !opts.UsePathStyle {
		t.Error("Expected path-style addressing with a custom endpoint")
	}
	if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://localhost:4566" {
		t.Errorf("Expected base endpoint to be set, got %v", opts.BaseEndpoint)
	}
}

func TestStoreLocation(t *testing.T) {
	tests := []struct {
		cfg  StoreConfig
		want string
	}{
		{StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": "/srv/blobs"}}, "/srv/blobs"},
		{StoreConfig{Type: "s3", S3: map[string]any{"bucket": "b", "key_prefix": "p/"}}, "s3://b/p/"},
		{StoreConfig{Type: "badger", Badger: map[string]any{"in_memory": true}}, "badger (in memory)"},
		{StoreConfig{Type: "memory"}, "memory"},
	}

	for _, tt := range tests {
		if got := StoreLocation(&tt.cfg); got != tt.want {
			t.Errorf("StoreLocation(%s) = %q, want %q", tt.cfg.Type, got, tt.want)
		}
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Protocol() != "HTTP" {
		t.Fatalf("Expected a single HTTP adapter, got %v", adapters)
	}

	cfg.HTTP = web.HTTPConfig{Enabled: false}
	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Error("Expected error when no adapter is enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.HTTPMetrics == nil {
		t.Error("Expected no-op HTTP metrics when disabled")
	}
	if result.DiskMetrics != nil || result.S3Metrics != nil {
		t.Error("Expected nil disk and S3 metrics when disabled")
	}
}
