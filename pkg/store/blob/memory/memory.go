// Package memory implements an in-memory blob store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/webdisk/pkg/names"
	"github.com/marmos91/webdisk/pkg/store/blob"
)

// MemoryBlobStore implements blob.BlobStore using a map.
//
// It is meant for tests, development and ephemeral deployments: content is
// lost when the process exits.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Content is copied on the
// way in and on the way out so callers never share buffers with the store.
type MemoryBlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		data: make(map[string][]byte),
	}
}

// List returns the names of all stored blobs.
func (s *MemoryBlobStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.data))
	for name := range s.data {
		result = append(result, name)
	}
	return result, nil
}

// Read returns a reader over a copy of the blob's content.
func (s *MemoryBlobStore) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !names.IsValid(name) {
		return nil, fmt.Errorf("read %q: %w", name, blob.ErrInvalidName)
	}

	s.mu.RLock()
	data, ok := s.data[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Write buffers the whole reader before swapping it in, so a failed copy
// leaves the previous content untouched.
func (s *MemoryBlobStore) Write(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("write %q: %w", name, blob.ErrInvalidName)
	}

	data, err := io.ReadAll(blob.ContextReader(ctx, r))
	if err != nil {
		return fmt.Errorf("failed to buffer blob %s: %w", name, err)
	}

	s.mu.Lock()
	s.data[name] = data
	s.mu.Unlock()

	return nil
}

// Delete removes the named blob.
func (s *MemoryBlobStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("delete %q: %w", name, blob.ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[name]; !ok {
		return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
	}
	delete(s.data, name)
	return nil
}
