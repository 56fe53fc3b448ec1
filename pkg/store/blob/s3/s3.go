// Package s3 implements S3-based blob storage for WebDisk.
//
// Each blob is one object whose key is the configured prefix followed by the
// blob name. The bucket therefore mirrors the flat layout of the filesystem
// store and can be inspected or migrated with ordinary S3 tooling.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/webdisk/pkg/names"
	"github.com/marmos91/webdisk/pkg/store/blob"
)

// Client is the subset of the S3 API used by the store. *s3.Client
// satisfies it; tests substitute a fake.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3BlobStore implements blob.BlobStore on Amazon S3 or an S3-compatible
// service (MinIO, Localstack, Cubbit DS3).
//
// Write Atomicity:
// Each write is a single PutObject. S3 publishes an object only once the
// upload completed, so a failed write never exposes partial content.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same name are
// last-writer-wins.
type S3BlobStore struct {
	client    Client
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "webdisk/" results in keys like "webdisk/abc123"
	KeyPrefix string

	// Metrics is optional; nil disables metrics collection
	Metrics S3Metrics
}

// NewS3BlobStore creates a new S3-based blob store.
//
// The bucket must already exist; this function verifies access to it but
// does not create it.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	var m S3Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		m = cfg.Metrics
	}

	return &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   m,
	}, nil
}

// objectKey returns the full S3 object key for name.
func (s *S3BlobStore) objectKey(name string) string {
	return s.keyPrefix + name
}

// isNotFound reports whether err is S3's answer for a missing key.
// GetObject reports NoSuchKey; HeadObject carries no body and reports a bare
// NotFound.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// List returns every object under the key prefix whose remaining key is a
// valid name. Keys containing further "/" segments are skipped.
func (s *S3BlobStore) List(ctx context.Context) (result []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("List", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	result = make([]string, 0)
	for paginator.HasMorePages() {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		page, pageErr := paginator.NextPage(ctx)
		if pageErr != nil {
			err = fmt.Errorf("failed to list objects: %w", pageErr)
			return nil, err
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, s.keyPrefix)
			if !names.IsValid(name) {
				continue
			}
			result = append(result, name)
		}
	}

	return result, nil
}

// Read downloads the named object and returns its body.
func (s *S3BlobStore) Read(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("Read", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if !names.IsValid(name) {
		return nil, fmt.Errorf("read %q: %w", name, blob.ErrInvalidName)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
			return nil, err
		}
		err = fmt.Errorf("failed to get object from S3: %w", err)
		return nil, err
	}

	return &metricsReadCloser{
		ReadCloser: out.Body,
		metrics:    s.metrics,
		operation:  "read",
	}, nil
}

// Write uploads the content of r as a single object.
//
// The reader is buffered in full first: PutObject needs a seekable body with a
// known length to sign the request.
func (s *S3BlobStore) Write(ctx context.Context, name string, r io.Reader) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("Write", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("write %q: %w", name, blob.ErrInvalidName)
	}

	data, err := io.ReadAll(blob.ContextReader(ctx, r))
	if err != nil {
		err = fmt.Errorf("failed to buffer blob %s: %w", name, err)
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		err = fmt.Errorf("failed to put object to S3: %w", err)
		return err
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Delete removes the named object.
//
// S3's DeleteObject succeeds for missing keys, so existence is checked with
// HeadObject first to report ErrBlobNotFound.
func (s *S3BlobStore) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("Delete", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("delete %q: %w", name, blob.ErrInvalidName)
	}

	key := s.objectKey(name)

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
			return err
		}
		err = fmt.Errorf("failed to head object in S3: %w", err)
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = fmt.Errorf("failed to delete object from S3: %w", err)
		return err
	}

	return nil
}
