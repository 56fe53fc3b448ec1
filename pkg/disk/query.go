package disk

import (
	"github.com/marmos91/webdisk/pkg/index"
)

// Query answers read-only questions from the index alone.
//
// None of its methods touch storage, so storage latency or outages never
// affect them.
type Query struct {
	index *index.NameIndex
}

// NewQuery creates a Query over idx.
func NewQuery(idx *index.NameIndex) *Query {
	return &Query{index: idx}
}

// Exists reports whether name is indexed.
func (q *Query) Exists(name string) bool {
	return q.index.Contains(name)
}

// Search returns every indexed name the pattern matches anywhere in, sorted.
// A malformed pattern yields ErrInvalidPattern.
func (q *Query) Search(pattern string) ([]string, error) {
	return q.index.Search(pattern)
}

// Size returns the number of indexed names.
func (q *Query) Size() int {
	return q.index.Size()
}
