package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// RunListTests executes List contract tests.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("List_Empty", suite.testListEmpty)
	t.Run("List_AllNames", suite.testListAllNames)
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	store := suite.NewStore()

	assert.Empty(t, mustList(t, store))
}

func (suite *StoreTestSuite) testListAllNames(t *testing.T) {
	store := suite.NewStore()

	for _, name := range []string{"one", "andone", "two"} {
		mustWrite(t, store, name, []byte(name))
	}

	assert.ElementsMatch(t, []string{"one", "andone", "two"}, mustList(t, store))
}
