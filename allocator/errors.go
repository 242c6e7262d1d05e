package allocator

import "errors"

// Sentinel errors. Callers match these with errors.Is; internal call
// sites may wrap them with github.com/pkg/errors for context without
// breaking that match.
var (
	// ErrZeroSize is returned when a malloc request of size 0 is made.
	ErrZeroSize = errors.New("allocator: requested size must be > 0")
	// ErrNoSpace is returned when no free block/order can satisfy a request.
	ErrNoSpace = errors.New("allocator: no space available")
	// ErrNotPowerOfTwo is returned by NewBuddyAllocator when the arena
	// size isn't a power of two.
	ErrNotPowerOfTwo = errors.New("allocator: buddy arena size must be a power of two")
	// ErrSizeTooLarge is returned when a request exceeds the arena's
	// largest representable order.
	ErrSizeTooLarge = errors.New("allocator: requested size exceeds arena capacity")
)

// FailureID is the sentinel id returned by Malloc on failure.
const FailureID = -1
