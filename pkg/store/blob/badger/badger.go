// Package badger implements blob storage on an embedded BadgerDB database.
//
// Each blob is stored as one key-value pair. Keys are namespaced with the
// "blob:" prefix so that the database can later host other record types
// without colliding with blob names.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/webdisk/pkg/names"
	"github.com/marmos91/webdisk/pkg/store/blob"
)

const prefixBlob = "blob:"

func keyBlob(name string) []byte {
	return []byte(prefixBlob + name)
}

// BadgerBlobStore implements blob.BlobStore using BadgerDB.
//
// Write Atomicity:
// Writes buffer the full content and commit it in a single transaction, so
// readers observe either the previous value or the new one.
//
// Thread Safety:
// Safe for concurrent use; BadgerDB provides MVCC transactions.
type BadgerBlobStore struct {
	db *badgerdb.DB
}

// BadgerBlobStoreConfig contains configuration for the badger blob store.
type BadgerBlobStoreConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the whole database in memory (tests, ephemeral use).
	InMemory bool
}

// NewBadgerBlobStore opens (or creates) the database described by cfg.
func NewBadgerBlobStore(ctx context.Context, cfg BadgerBlobStoreConfig) (*BadgerBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger blob store: path is required")
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}

	// Blob content is opaque and often already compressed
	opts = opts.WithLoggingLevel(badgerdb.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}

	return &BadgerBlobStore{db: db}, nil
}

// List iterates the blob key range without fetching values.
func (s *BadgerBlobStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]string, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixBlob)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := string(bytes.TrimPrefix(it.Item().Key(), []byte(prefixBlob)))
			if !names.IsValid(name) {
				continue
			}
			result = append(result, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	return result, nil
}

// Read returns a reader over a copy of the stored value.
func (s *BadgerBlobStore) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !names.IsValid(name) {
		return nil, fmt.Errorf("read %q: %w", name, blob.ErrInvalidName)
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyBlob(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Write buffers r and stores it in one transaction.
func (s *BadgerBlobStore) Write(ctx context.Context, name string, r io.Reader) error {
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

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyBlob(name), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}

	return nil
}

// Delete removes the named blob, reporting ErrBlobNotFound when absent.
func (s *BadgerBlobStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("delete %q: %w", name, blob.ErrInvalidName)
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyBlob(name)); err != nil {
			return err
		}
		return txn.Delete(keyBlob(name))
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
		}
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	return nil
}

// Close closes the underlying database.
func (s *BadgerBlobStore) Close() error {
	return s.db.Close()
}
