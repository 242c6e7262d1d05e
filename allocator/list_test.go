package allocator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAllocator(t *testing.T) {
	t.Run("first fit basic", func(t *testing.T) {
		a := NewListAllocator(64, FirstFit)

		id1, err := a.Malloc(16)
		require.NoError(t, err)
		id2, err := a.Malloc(16)
		require.NoError(t, err)
		assert.Equal(t, 1, id1)
		assert.Equal(t, 2, id2)

		a.Free(id1)
		id3, err := a.Malloc(8)
		require.NoError(t, err)
		assert.Equal(t, 3, id3)

		want := "[0x0000 - 0x0007] USED (id=3)\n" +
			"[0x0008 - 0x000f] FREE\n" +
			"[0x0010 - 0x001f] USED (id=2)\n" +
			"[0x0020 - 0x003f] FREE\n"
		assert.Equal(t, want, a.Dump())
	})

	t.Run("coalesce law", func(t *testing.T) {
		a := NewListAllocator(64, FirstFit)

		id1, err := a.Malloc(16)
		require.NoError(t, err)
		id2, err := a.Malloc(16)
		require.NoError(t, err)

		a.Free(id1)
		a.Free(id2)

		want := "[0x0000 - 0x003f] FREE\n"
		assert.Equal(t, want, a.Dump())
	})

	t.Run("best fit picks smallest satisfying block", func(t *testing.T) {
		a := NewListAllocator(64, BestFit)

		ida, _ := a.Malloc(8)
		idb, _ := a.Malloc(16)
		_, _ = a.Malloc(8)

		a.Free(idb)
		a.Free(ida)

		id, err := a.Malloc(7)
		require.NoError(t, err)
		assert.Positive(t, id)
		// Free blocks are [0,24) and [32,64): the 24-byte one is chosen.
		assert.Contains(t, a.Dump(), "[0x0000 - 0x0006] USED (id=4)\n")
	})

	t.Run("worst fit picks largest satisfying block", func(t *testing.T) {
		a := NewListAllocator(64, WorstFit)

		ida, _ := a.Malloc(8)
		idb, _ := a.Malloc(8)
		_, _ = a.Malloc(8)

		a.Free(idb)
		a.Free(ida)

		id, err := a.Malloc(4)
		require.NoError(t, err)
		assert.Positive(t, id)
		// Free blocks are [0,16) and [24,64): the 40-byte one is chosen.
		assert.Contains(t, a.Dump(), "[0x0018 - 0x001b] USED (id=4)\n")
	})

	t.Run("zero size rejected", func(t *testing.T) {
		a := NewListAllocator(64, FirstFit)
		id, err := a.Malloc(0)
		assert.ErrorIs(t, err, ErrZeroSize)
		assert.Equal(t, FailureID, id)
		assert.EqualValues(t, 1, a.Stats().FailedAllocRequests)
	})

	t.Run("free of unknown id is a silent no-op", func(t *testing.T) {
		a := NewListAllocator(64, FirstFit)
		before := a.Stats()
		a.Free(9999)
		assert.Empty(t, cmp.Diff(before, a.Stats()))
	})

	t.Run("failure increments stats and returns sentinel", func(t *testing.T) {
		a := NewListAllocator(16, FirstFit)
		_, err := a.Malloc(32)
		assert.ErrorIs(t, err, ErrNoSpace)
		assert.EqualValues(t, 1, a.Stats().FailedAllocRequests)
		assert.InDelta(t, 100.0, a.Stats().FailureRate(), 0.0001)
	})

	t.Run("external fragmentation and utilisation", func(t *testing.T) {
		a := NewListAllocator(64, FirstFit)
		_, _ = a.Malloc(16)
		id2, _ := a.Malloc(16)
		a.Free(id2)

		assert.InDelta(t, 25.0, a.Stats().Utilization(), 0.0001)
		assert.Equal(t, uint64(0), a.stats.InternalFragmentationBytes)
		assert.Equal(t, 0.0, a.ExternalFragmentation())
	})
}
