package allocator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuddyAllocator(t *testing.T) {
	t.Run("rejects non power of two", func(t *testing.T) {
		_, err := NewBuddyAllocator(100)
		assert.ErrorIs(t, err, ErrNotPowerOfTwo)
	})

	t.Run("alloc/free round trip", func(t *testing.T) {
		a, err := NewBuddyAllocator(1024)
		require.NoError(t, err)

		id, err := a.Malloc(100)
		require.NoError(t, err)
		assert.Equal(t, 1, id)
		assert.EqualValues(t, 128, a.Stats().UsedMemory)
		assert.EqualValues(t, 28, a.Stats().InternalFragmentationBytes)

		a.Free(id)
		assert.Equal(t, []uint64{0}, a.freeLists[a.maxOrder])
		for order := uint(0); order < a.maxOrder; order++ {
			assert.Emptyf(t, a.freeLists[order], "order %d should be empty after full merge", order)
		}
	})

	t.Run("fill then evict then refill", func(t *testing.T) {
		a, err := NewBuddyAllocator(64)
		require.NoError(t, err)

		var ids []int
		for i := 0; i < 4; i++ {
			id, err := a.Malloc(16)
			require.NoError(t, err)
			ids = append(ids, id)
		}

		_, err = a.Malloc(16)
		assert.ErrorIs(t, err, ErrNoSpace)

		a.Free(ids[1])
		id, err := a.Malloc(8)
		require.NoError(t, err)
		assert.Positive(t, id)
	})

	t.Run("zero size rejected", func(t *testing.T) {
		a, err := NewBuddyAllocator(64)
		require.NoError(t, err)
		_, err = a.Malloc(0)
		assert.ErrorIs(t, err, ErrZeroSize)
	})

	t.Run("free of unknown id is a silent no-op", func(t *testing.T) {
		a, err := NewBuddyAllocator(64)
		require.NoError(t, err)
		before := a.Stats()
		a.Free(12345)
		assert.Empty(t, cmp.Diff(before, a.Stats()))
	})

	t.Run("size too large rejected", func(t *testing.T) {
		a, err := NewBuddyAllocator(64)
		require.NoError(t, err)
		_, err = a.Malloc(128)
		assert.ErrorIs(t, err, ErrSizeTooLarge)
	})

	t.Run("buddy merge law across many allocations", func(t *testing.T) {
		a, err := NewBuddyAllocator(1024)
		require.NoError(t, err)

		var ids []int
		for i := 0; i < 8; i++ {
			id, err := a.Malloc(64)
			require.NoError(t, err)
			ids = append(ids, id)
		}
		for _, id := range ids {
			a.Free(id)
		}

		assert.Equal(t, []uint64{0}, a.freeLists[a.maxOrder])
	})
}
