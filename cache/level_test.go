package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheLevelFIFO(t *testing.T) {
	l := NewCacheLevel(2, 1, FIFO)
	l.Insert(1)
	l.Insert(2)
	assert.True(t, l.Access(1))
	// FIFO eviction ignores recency: 1 was just accessed but was
	// still the oldest insert, so it is still the victim.
	l.Insert(3)
	assert.False(t, l.Access(1))
	assert.True(t, l.Access(2))
	assert.True(t, l.Access(3))
}

func TestCacheLevelLRU(t *testing.T) {
	l := NewCacheLevel(2, 1, LRU)
	l.Insert(1)
	l.Insert(2)
	assert.True(t, l.Access(1)) // promotes 1 to MRU
	l.Insert(3)                 // evicts 2, the LRU entry
	assert.True(t, l.Access(1))
	assert.False(t, l.Access(2))
	assert.True(t, l.Access(3))
}

func TestCacheLevelLFU(t *testing.T) {
	l := NewCacheLevel(2, 1, LFU)
	l.Insert(1)
	l.Insert(2)
	l.Access(1)
	l.Access(1) // block 1 now has the higher frequency
	l.Insert(3) // evicts block 2, the coldest entry
	assert.True(t, l.Access(1))
	assert.False(t, l.Access(2))
	assert.True(t, l.Access(3))
}

func TestCacheLevelLFUTieBreak(t *testing.T) {
	// Equal frequency: the entry with the smallest last_used loses,
	// per the spec's prescribed tie-break (not insertion order).
	l := NewCacheLevel(2, 1, LFU)
	l.Insert(1) // t=1, freq=1, last_used=1
	l.Insert(2) // t=2, freq=1, last_used=2
	l.Access(2) // t=3, block 2: freq=2, last_used=3
	l.Access(1) // t=4, block 1: freq=2, last_used=4
	// Both now have freq=2, but block 2's last_used(3) < block 1's(4).
	l.Insert(3)
	assert.False(t, l.Access(2))
	assert.True(t, l.Access(1))
	assert.True(t, l.Access(3))
}

func TestCacheLevelInsertExistingIsAnAccess(t *testing.T) {
	l := NewCacheLevel(2, 1, FIFO)
	l.Insert(1)
	l.Insert(2)
	l.Insert(1) // already present: treated as access, no reordering
	l.Insert(3) // victim is still 1 (front of order), not 2
	assert.False(t, l.Access(1))
	assert.True(t, l.Access(2))
	assert.True(t, l.Access(3))
}

func TestCacheLevelCapacityInvariant(t *testing.T) {
	l := NewCacheLevel(3, 1, LRU)
	for i := uint64(0); i < 10; i++ {
		l.Insert(i)
		assert.LessOrEqual(t, l.Len(), 3)
	}
}

func TestCacheLevelDumpEmpty(t *testing.T) {
	l := NewCacheLevel(2, 1, FIFO)
	assert.Equal(t, "L1 Cache:\n  [empty]\n", l.Dump("L1"))
}
