package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"SingleChar", "a", true},
		{"MixedAlphabet", "Ab9-_z", true},
		{"MaxLength", strings.Repeat("x", MaxLength), true},
		{"Empty", "", false},
		{"TooLong", strings.Repeat("x", MaxLength+1), false},
		{"Dot", "one.one", false},
		{"Slash", "a/b", false},
		{"ParentDir", "..", false},
		{"Space", "a b", false},
		{"Unicode", "café", false},
		{"TrailingNewline", "abc\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.input))
		})
	}
}

func TestGenerator_ProducesValidNames(t *testing.T) {
	g := NewGenerator()

	for range 10_000 {
		name := g.Next()
		if !IsValid(name) {
			t.Fatalf("generated invalid name %q", name)
		}
	}
}

func TestGenerator_CoversLengthRange(t *testing.T) {
	g := NewSeededGenerator(1, 2)

	seen := make(map[int]bool)
	for range 50_000 {
		seen[len(g.Next())] = true
	}

	assert.True(t, seen[MinLength], "shortest length never drawn")
	assert.True(t, seen[MaxLength], "longest length never drawn")
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewSeededGenerator(7, 11)
	b := NewSeededGenerator(7, 11)

	for range 100 {
		assert.Equal(t, a.Next(), b.Next())
	}
}
