// Package fs implements filesystem-based blob storage for WebDisk.
//
// Blobs are stored as regular files directly under a base directory, one
// file per name, the filename equal to the name. The filesystem is accessed
// through afero so tests can run against an in-memory or fault-injecting
// filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmos91/webdisk/pkg/names"
	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/spf13/afero"
)

// pendingPrefix marks temp files of in-flight writes. The leading dot keeps
// them outside the name syntax, so List never reports them.
const pendingPrefix = ".pending-"

// FSBlobStore implements blob.BlobStore on a flat directory.
//
// Write Atomicity:
// Content is written to a temp file in the base directory and renamed over
// the target only after the copy succeeded and the file was synced. A
// rename within one directory is atomic on POSIX filesystems, so readers see
// either the old content or the new content, never a prefix of it.
//
// Thread Safety:
// Safe for concurrent use. Each write owns its own temp file; concurrent
// writes to the same name are last-rename-wins.
type FSBlobStore struct {
	fs       afero.Fs
	basePath string
}

// NewFSBlobStore creates a blob store rooted at basePath on the OS
// filesystem, creating the directory if needed.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory holding blob files
//
// Returns:
//   - *FSBlobStore: Initialized store
//   - error: Directory creation failure or context cancellation
func NewFSBlobStore(ctx context.Context, basePath string) (*FSBlobStore, error) {
	return NewFSBlobStoreWithFs(ctx, afero.NewOsFs(), basePath)
}

// NewFSBlobStoreWithFs creates a blob store rooted at basePath on the given
// afero filesystem.
func NewFSBlobStoreWithFs(ctx context.Context, fsys afero.Fs, basePath string) (*FSBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := fsys.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSBlobStore{
		fs:       fsys,
		basePath: normalizeBasePath(basePath),
	}, nil
}

// normalizeBasePath makes sure the base path ends in a separator so names can
// be appended directly.
func normalizeBasePath(p string) string {
	if strings.HasSuffix(p, string(os.PathSeparator)) || strings.HasSuffix(p, "/") {
		return p
	}
	return p + string(os.PathSeparator)
}

// BasePath returns the normalized base directory, always ending in a
// separator.
func (s *FSBlobStore) BasePath() string {
	return s.basePath
}

// pathFor returns the file path for name. Callers must have validated name.
func (s *FSBlobStore) pathFor(name string) string {
	return s.basePath + name
}

// List returns the names of all regular files directly under the base
// directory whose filename satisfies the name syntax.
func (s *FSBlobStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}

	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !names.IsValid(entry.Name()) {
			continue
		}
		result = append(result, entry.Name())
	}

	return result, nil
}

// Read opens the named blob for reading.
func (s *FSBlobStore) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !names.IsValid(name) {
		return nil, fmt.Errorf("read %q: %w", name, blob.ErrInvalidName)
	}

	path := s.pathFor(name)
	file, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat blob %s: %w", name, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
	}

	return file, nil
}

// Write stores the content of r under name via temp file and rename.
func (s *FSBlobStore) Write(ctx context.Context, name string, r io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("write %q: %w", name, blob.ErrInvalidName)
	}

	// ========================================================================
	// Step 1: Stream into a temp file next to the target
	// ========================================================================

	tmp, err := afero.TempFile(s.fs, s.basePath, pendingPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, blob.ContextReader(ctx, r)); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync blob %s: %w", name, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close blob %s: %w", name, err)
	}

	// ========================================================================
	// Step 2: Publish atomically
	// ========================================================================

	if err = ctx.Err(); err != nil {
		return err
	}

	if err = s.fs.Rename(tmpName, s.pathFor(name)); err != nil {
		return fmt.Errorf("failed to publish blob %s: %w", name, err)
	}

	return nil
}

// Delete removes the named blob file. Directories are never removed.
func (s *FSBlobStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !names.IsValid(name) {
		return fmt.Errorf("delete %q: %w", name, blob.ErrInvalidName)
	}

	path := s.pathFor(name)
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
		}
		return fmt.Errorf("failed to stat blob %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
	}

	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", name, blob.ErrBlobNotFound)
		}
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	return nil
}
