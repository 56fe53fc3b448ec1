package testing

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// mustWrite writes data under name and fails the test if it errors.
func mustWrite(t *testing.T, store blob.BlobStore, name string, data []byte) {
	t.Helper()
	err := store.Write(testContext(), name, bytes.NewReader(data))
	require.NoError(t, err, "Write should succeed")
}

// mustRead reads the full content of name and fails the test if it errors.
func mustRead(t *testing.T, store blob.BlobStore, name string) []byte {
	t.Helper()
	reader, err := store.Read(testContext(), name)
	require.NoError(t, err, "Read should succeed")
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "Reading content should succeed")
	return data
}

// mustList lists the store and fails the test if it errors.
func mustList(t *testing.T, store blob.BlobStore) []string {
	t.Helper()
	result, err := store.List(testContext())
	require.NoError(t, err, "List should succeed")
	return result
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range size {
		data[i] = byte(i % 256)
	}
	return data
}

// failingReader yields some bytes and then an error.
type failingReader struct {
	data []byte
	err  error
	done bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.done {
		return 0, f.err
	}
	f.done = true
	return copy(p, f.data), nil
}
