package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes write contract tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Write_InvalidName", suite.testWriteInvalidName)
	t.Run("Write_FailedReaderKeepsPrevious", suite.testWriteFailedReaderKeepsPrevious)
	t.Run("Write_FailedReaderCreatesNothing", suite.testWriteFailedReaderCreatesNothing)
	t.Run("Write_CancelledContext", suite.testWriteCancelledContext)
	t.Run("Write_Concurrent", suite.testWriteConcurrent)
}

func (suite *StoreTestSuite) testWriteOverwrite(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "doc", []byte("first version, longer"))
	mustWrite(t, store, "doc", []byte("second"))

	assert.Equal(t, []byte("second"), mustRead(t, store, "doc"))
	assert.Equal(t, []string{"doc"}, mustList(t, store))
}

func (suite *StoreTestSuite) testWriteInvalidName(t *testing.T) {
	store := suite.NewStore()

	for _, name := range []string{"", "one.one", "../escape", "a/b"} {
		err := store.Write(testContext(), name, bytes.NewReader([]byte("x")))
		AssertErrorIs(t, blob.ErrInvalidName, err)
	}

	assert.Empty(t, mustList(t, store))
}

func (suite *StoreTestSuite) testWriteFailedReaderKeepsPrevious(t *testing.T) {
	store := suite.NewStore()
	mustWrite(t, store, "stable", []byte("original"))

	boom := errors.New("client went away")
	err := store.Write(testContext(), "stable", &failingReader{data: []byte("partial"), err: boom})
	require.Error(t, err)

	assert.Equal(t, []byte("original"), mustRead(t, store, "stable"))
}

func (suite *StoreTestSuite) testWriteFailedReaderCreatesNothing(t *testing.T) {
	store := suite.NewStore()

	boom := errors.New("client went away")
	err := store.Write(testContext(), "fresh", &failingReader{data: []byte("partial"), err: boom})
	require.Error(t, err)

	_, err = store.Read(testContext(), "fresh")
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
	assert.Empty(t, mustList(t, store))
}

func (suite *StoreTestSuite) testWriteCancelledContext(t *testing.T) {
	store := suite.NewStore()

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	err := store.Write(ctx, "cancelled", bytes.NewReader([]byte("data")))
	AssertErrorIs(t, context.Canceled, err)

	_, err = store.Read(testContext(), "cancelled")
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testWriteConcurrent(t *testing.T) {
	store := suite.NewStore()

	const writers = 16
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent-%d", i)
			if err := store.Write(testContext(), name, bytes.NewReader([]byte(name))); err != nil {
				t.Errorf("Write %s failed: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, mustList(t, store), writers)
	for i := range writers {
		name := fmt.Sprintf("concurrent-%d", i)
		assert.Equal(t, []byte(name), mustRead(t, store, name))
	}
}
