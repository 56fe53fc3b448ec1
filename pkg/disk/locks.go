package disk

import (
	"hash/maphash"
	"sync"
)

const lockStripes = 256

// nameLocks serializes mutating operations on the same name.
//
// Names hash onto a fixed set of mutexes, so memory stays bounded no matter
// how many distinct names pass through. Two names sharing a stripe only
// serialize with each other, which is harmless.
type nameLocks struct {
	seed    maphash.Seed
	stripes [lockStripes]sync.Mutex
}

func newNameLocks() *nameLocks {
	return &nameLocks{seed: maphash.MakeSeed()}
}

// lock acquires the stripe for name and returns its unlock function.
func (l *nameLocks) lock(name string) func() {
	mu := &l.stripes[maphash.String(l.seed, name)%lockStripes]
	mu.Lock()
	return mu.Unlock
}
