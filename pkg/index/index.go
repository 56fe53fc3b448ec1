// Package index implements the in-memory name index.
//
// The index is the authoritative low-latency answer to "does this name
// exist". It carries no durability of its own: it is warmed from the blob
// store at startup and kept in step with it by the disk package.
package index

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/marmos91/webdisk/pkg/names"
)

// MaxGenerateAttempts bounds the number of random candidates GenerateUnique
// draws before giving up.
const MaxGenerateAttempts = 100

var (
	// ErrNameSpaceExhausted is returned when GenerateUnique cannot find a free
	// name within MaxGenerateAttempts draws.
	ErrNameSpaceExhausted = errors.New("unable to generate a unique name")

	// ErrInvalidPattern is returned when a search pattern does not compile.
	ErrInvalidPattern = errors.New("invalid search pattern")
)

// NameSource yields candidate names for GenerateUnique.
type NameSource interface {
	Next() string
}

// NameIndex is a set of names guarded by a single lock.
//
// Thread Safety:
// All methods are safe for concurrent use. GenerateUnique checks and inserts
// under the same write lock, so two concurrent callers never receive the same
// name.
type NameIndex struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	source NameSource
}

// New creates an empty index that draws generated names from a fresh
// names.Generator.
func New() *NameIndex {
	return NewWithSource(names.NewGenerator())
}

// NewWithSource creates an empty index using the given candidate source.
func NewWithSource(source NameSource) *NameIndex {
	return &NameIndex{
		names:  make(map[string]struct{}),
		source: source,
	}
}

// Contains reports whether name is indexed.
func (x *NameIndex) Contains(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	_, ok := x.names[name]
	return ok
}

// Add inserts name and reports whether it was newly added. Adding a name that
// is already present is not an error.
func (x *NameIndex) Add(name string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.names[name]; ok {
		return false
	}
	x.names[name] = struct{}{}
	return true
}

// Remove deletes name. Removing an absent name is a no-op.
func (x *NameIndex) Remove(name string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.names, name)
}

// IsValid reports whether name satisfies the name syntax. It does not consult
// the index.
func (x *NameIndex) IsValid(name string) bool {
	return names.IsValid(name)
}

// GenerateUnique reserves and returns a name that was not indexed.
//
// Candidates come from the index's NameSource. The first candidate not
// already present is added to the index before the lock is released, so the
// returned name is owned by the caller until it is removed again.
func (x *NameIndex) GenerateUnique() (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for range MaxGenerateAttempts {
		candidate := x.source.Next()
		if _, taken := x.names[candidate]; taken {
			continue
		}
		x.names[candidate] = struct{}{}
		return candidate, nil
	}

	return "", fmt.Errorf("%w after %d attempts (index size %d)",
		ErrNameSpaceExhausted, MaxGenerateAttempts, len(x.names))
}

// Search returns every indexed name in which pattern matches anywhere.
//
// The pattern uses Go's RE2 syntax and is unanchored: "one" matches both
// "one" and "andone". Matching is case-sensitive. Results are sorted.
func (x *NameIndex) Search(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	x.mu.RLock()
	results := make([]string, 0)
	for name := range x.names {
		if re.MatchString(name) {
			results = append(results, name)
		}
	}
	x.mu.RUnlock()

	sort.Strings(results)
	return results, nil
}

// Size returns the number of indexed names.
func (x *NameIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.names)
}

// Names returns a sorted snapshot of every indexed name.
func (x *NameIndex) Names() []string {
	x.mu.RLock()
	out := make([]string, 0, len(x.names))
	for name := range x.names {
		out = append(out, name)
	}
	x.mu.RUnlock()

	sort.Strings(out)
	return out
}
