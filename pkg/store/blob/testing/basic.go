package testing

import (
	"testing"

	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes read and delete contract tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Read_NotFound", suite.testReadNotFound)
	t.Run("Read_RoundTrip", suite.testReadRoundTrip)
	t.Run("Read_Empty", suite.testReadEmpty)
	t.Run("Read_Large", suite.testReadLarge)
	t.Run("Read_InvalidName", suite.testReadInvalidName)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Delete_InvalidName", suite.testDeleteInvalidName)
}

// ============================================================================
// Read Tests
// ============================================================================

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Read(testContext(), "missing")

	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testReadRoundTrip(t *testing.T) {
	store := suite.NewStore()
	data := []byte("Hello, World!")

	mustWrite(t, store, "hello", data)

	assert.Equal(t, data, mustRead(t, store, "hello"))
}

func (suite *StoreTestSuite) testReadEmpty(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "empty", []byte{})

	assert.Empty(t, mustRead(t, store, "empty"))
}

func (suite *StoreTestSuite) testReadLarge(t *testing.T) {
	store := suite.NewStore()
	// 4MB test data
	data := generateTestData(4 * 1024 * 1024)

	mustWrite(t, store, "large", data)

	assert.Equal(t, data, mustRead(t, store, "large"))
}

func (suite *StoreTestSuite) testReadInvalidName(t *testing.T) {
	store := suite.NewStore()

	for _, name := range []string{"", "one.one", "../escape", "a/b"} {
		_, err := store.Read(testContext(), name)
		AssertErrorIs(t, blob.ErrInvalidName, err)
	}
}

// ============================================================================
// Delete Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore()

	mustWrite(t, store, "doomed", []byte("bye"))
	require.NoError(t, store.Delete(testContext(), "doomed"))

	_, err := store.Read(testContext(), "doomed")
	AssertErrorIs(t, blob.ErrBlobNotFound, err)
	assert.NotContains(t, mustList(t, store), "doomed")
}

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	store := suite.NewStore()

	err := store.Delete(testContext(), "missing")

	AssertErrorIs(t, blob.ErrBlobNotFound, err)
}

func (suite *StoreTestSuite) testDeleteInvalidName(t *testing.T) {
	store := suite.NewStore()
	mustWrite(t, store, "keep", []byte("x"))

	for _, name := range []string{"", "keep.", "../keep", "a/keep"} {
		err := store.Delete(testContext(), name)
		AssertErrorIs(t, blob.ErrInvalidName, err)
	}

	assert.Equal(t, []string{"keep"}, mustList(t, store))
}
