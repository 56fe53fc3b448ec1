package testing

import (
	"context"
	"testing"

	"github.com/marmos91/webdisk/pkg/store/blob"
)

// StoreTestSuite is a conformance suite for BlobStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, badger, S3).
//
// Usage:
//
//	func TestMyBlobStore(t *testing.T) {
//	    suite := &blobtesting.StoreTestSuite{
//	        NewStore: func() blob.BlobStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh, empty BlobStore
	// for each test. This ensures test isolation.
	NewStore func() blob.BlobStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("ListOperations", suite.RunListTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
