package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/pkg/store/blob"
	blobBadger "github.com/marmos91/webdisk/pkg/store/blob/badger"
	blobFs "github.com/marmos91/webdisk/pkg/store/blob/fs"
	"github.com/marmos91/webdisk/pkg/store/blob/memory"
	blobS3 "github.com/marmos91/webdisk/pkg/store/blob/s3"
)

// CreateBlobStore creates a blob store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/store/blob/fs (one file per blob under a base directory)
//   - "memory": Uses pkg/store/blob/memory (ephemeral)
//   - "s3": Uses pkg/store/blob/s3 (Amazon S3 or compatible storage)
//   - "badger": Uses pkg/store/blob/badger (embedded BadgerDB)
//
// s3Metrics may be nil.
func CreateBlobStore(ctx context.Context, cfg *StoreConfig, s3Metrics blobS3.S3Metrics) (blob.BlobStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemBlobStore(ctx, cfg.Filesystem)
	case "memory":
		return memory.NewMemoryBlobStore(), nil
	case "s3":
		return createS3BlobStore(ctx, cfg.S3, s3Metrics)
	case "badger":
		return createBadgerBlobStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown blob store type: %q", cfg.Type)
	}
}

// StoreLocation describes where the configured store keeps its blobs, for
// startup logging.
func StoreLocation(cfg *StoreConfig) string {
	switch cfg.Type {
	case "filesystem":
		path, _ := cfg.Filesystem["path"].(string)
		return path
	case "s3":
		bucket, _ := cfg.S3["bucket"].(string)
		prefix, _ := cfg.S3["key_prefix"].(string)
		return "s3://" + bucket + "/" + prefix
	case "badger":
		if inMemory, _ := cfg.Badger["in_memory"].(bool); inMemory {
			return "badger (in memory)"
		}
		path, _ := cfg.Badger["path"].(string)
		return "badger:" + path
	default:
		return cfg.Type
	}
}

// createFilesystemBlobStore creates a filesystem-based blob store.
func createFilesystemBlobStore(ctx context.Context, options map[string]any) (blob.BlobStore, error) {
	type FilesystemBlobStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemBlobStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem blob store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem blob store: path is required")
	}

	store, err := blobFs.NewFSBlobStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem blob store: %w", err)
	}

	return store, nil
}

// createBadgerBlobStore opens an embedded BadgerDB blob store.
func createBadgerBlobStore(ctx context.Context, options map[string]any) (blob.BlobStore, error) {
	type BadgerOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeCfg BadgerOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger blob store config: %w", err)
	}

	store, err := blobBadger.NewBadgerBlobStore(ctx, blobBadger.BadgerBlobStoreConfig{
		Path:     storeCfg.Path,
		InMemory: storeCfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger blob store: %w", err)
	}

	return store, nil
}

// S3Options is the decoded store.s3 section.
type S3Options struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// createS3BlobStore creates an S3-based blob store.
func createS3BlobStore(ctx context.Context, options map[string]any, s3Metrics blobS3.S3Metrics) (blob.BlobStore, error) {
	var storeCfg S3Options
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 blob store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 blob store: region is required")
	}

	client, err := NewS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	store, err := blobS3.NewS3BlobStore(ctx, blobS3.S3BlobStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 blob store: %w", err)
	}

	logger.Info("S3 blob store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// NewS3Client builds an S3 client from decoded options. A custom endpoint
// (MinIO, Localstack) switches to path-style addressing.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Explicit credentials win over the default chain
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return client, nil
}
