// Package names defines the syntax of blob names and a random generator for
// system-assigned names.
//
// A name is 1 to 64 characters drawn from [A-Za-z0-9_-]. The restricted
// alphabet excludes path separators and dots, so a valid name is always safe
// to use as a single path segment or object key without further escaping.
package names

import (
	"math/rand/v2"
	"regexp"
	"sync"
)

const (
	// MinLength is the shortest valid name.
	MinLength = 1

	// MaxLength is the longest valid name.
	MaxLength = 64

	// Alphabet lists every character a name may contain.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValid reports whether name satisfies the name syntax.
func IsValid(name string) bool {
	return validName.MatchString(name)
}

// Generator produces random candidate names.
//
// Each candidate has a length drawn uniformly from [MinLength, MaxLength] and
// every character drawn uniformly from Alphabet. Candidates are not checked
// for uniqueness; that is the caller's job.
//
// Thread Safety:
// Safe for concurrent use. The underlying source is guarded by a mutex.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded from the runtime's random source.
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededGenerator returns a deterministic Generator. Tests use it to
// reproduce collisions.
func NewSeededGenerator(seed1, seed2 uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Next returns a new random candidate name.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	length := MinLength + g.rng.IntN(MaxLength-MinLength+1)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = Alphabet[g.rng.IntN(len(Alphabet))]
	}

	return string(buf)
}
