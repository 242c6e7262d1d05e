package allocator

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/hybridlab/memsim/internal/logx"
	"github.com/pkg/errors"
)

// allocInfo is the per-live-allocation record keyed by id (C3/C4).
type allocInfo struct {
	addr      uint64
	order     uint
	requested uint64
}

// BuddyAllocator is a power-of-two buddy allocator: K+1 free lists
// (one per order), split on allocation, XOR-buddy merge on free.
type BuddyAllocator struct {
	total     uint64
	maxOrder  uint
	freeLists [][]uint64 // order -> queue of free base addresses (front = oldest)
	allocated map[int]allocInfo
	nextID    int
	stats     Stats
}

func isPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// NewBuddyAllocator creates a buddy allocator over an arena of size
// total, which must be a power of two. Construction fails loudly
// otherwise (spec §4.2, §7 error kind 1) since no valid state exists.
func NewBuddyAllocator(total uint64) (*BuddyAllocator, error) {
	if !isPowerOfTwo(total) {
		return nil, errors.Wrapf(ErrNotPowerOfTwo, "NewBuddyAllocator(%d)", total)
	}
	maxOrder := uint(bits.Len64(total) - 1)

	freeLists := make([][]uint64, maxOrder+1)
	for i := range freeLists {
		freeLists[i] = nil
	}
	freeLists[maxOrder] = []uint64{0}

	a := &BuddyAllocator{
		total:     total,
		maxOrder:  maxOrder,
		freeLists: freeLists,
		allocated: make(map[int]allocInfo),
		nextID:    1,
	}
	a.stats.TotalMemory = total
	a.stats.FreeMemory = total
	logx.Debug("creating buddy allocator", logx.Fields{"total": total, "max_order": maxOrder})
	return a, nil
}

// sizeToOrder returns the smallest order such that 2^order >= size.
func sizeToOrder(size uint64) uint {
	var order uint
	block := uint64(1)
	for block < size {
		block <<= 1
		order++
	}
	return order
}

func popFront(q []uint64) (uint64, []uint64) {
	return q[0], q[1:]
}

// Malloc allocates the smallest order satisfying size, splitting
// any larger order found along the way (spec §4.2).
func (a *BuddyAllocator) Malloc(size uint64) (int, error) {
	a.stats.TotalAllocRequests++
	if size == 0 {
		a.stats.FailedAllocRequests++
		return FailureID, errors.Wrap(ErrZeroSize, "buddy allocator malloc")
	}

	order := sizeToOrder(size)
	if order > a.maxOrder {
		a.stats.FailedAllocRequests++
		return FailureID, errors.Wrapf(ErrSizeTooLarge, "buddy allocator malloc(%d)", size)
	}

	curr := order
	for curr <= a.maxOrder && len(a.freeLists[curr]) == 0 {
		curr++
	}
	if curr > a.maxOrder {
		a.stats.FailedAllocRequests++
		logx.Debug("buddy malloc failed", logx.Fields{"size": size, "order": order})
		return FailureID, errors.Wrapf(ErrNoSpace, "buddy allocator malloc(%d)", size)
	}

	addr, rest := popFront(a.freeLists[curr])
	a.freeLists[curr] = rest

	for curr > order {
		curr--
		upper := addr + (uint64(1) << curr)
		a.freeLists[curr] = append(a.freeLists[curr], upper)
	}

	id := a.nextID
	a.nextID++
	a.allocated[id] = allocInfo{addr: addr, order: order, requested: size}

	actual := uint64(1) << order
	a.stats.UsedMemory += actual
	a.stats.FreeMemory = a.total - a.stats.UsedMemory
	a.stats.InternalFragmentationBytes += actual - size

	logx.Debug("buddy malloc ok", logx.Fields{"id": id, "addr": addr, "order": order, "size": size})
	return id, nil
}

// Free releases id's allocation, then repeatedly merges with its
// buddy until no buddy is free or the top order is reached (spec
// §4.2). Unknown ids are a silent no-op.
func (a *BuddyAllocator) Free(id int) {
	info, ok := a.allocated[id]
	if !ok {
		logx.Debug("buddy free: unknown id", logx.Fields{"id": id})
		return
	}
	delete(a.allocated, id)

	actual := uint64(1) << info.order
	a.stats.UsedMemory -= actual
	a.stats.FreeMemory = a.total - a.stats.UsedMemory
	a.stats.InternalFragmentationBytes -= actual - info.requested

	addr, order := info.addr, info.order
	for order < a.maxOrder {
		buddy := addr ^ (uint64(1) << order)
		list := a.freeLists[order]
		idx := -1
		for i, v := range list {
			if v == buddy {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		a.freeLists[order] = append(list[:idx], list[idx+1:]...)
		if buddy < addr {
			addr = buddy
		}
		order++
	}
	a.freeLists[order] = append(a.freeLists[order], addr)
	logx.Debug("buddy free ok", logx.Fields{"id": id})
}

// ExternalFragmentation returns (total_free-largest_present)/total_free
// * 100 across all orders, or 0 when nothing is free (spec §4.2).
func (a *BuddyAllocator) ExternalFragmentation() float64 {
	var totalFree, largest uint64
	for order, list := range a.freeLists {
		if len(list) == 0 {
			continue
		}
		blockSize := uint64(1) << uint(order)
		totalFree += blockSize * uint64(len(list))
		if blockSize > largest {
			largest = blockSize
		}
	}
	if totalFree == 0 {
		return 0
	}
	return float64(totalFree-largest) / float64(totalFree) * 100
}

// InternalFragmentation returns internal_fragmentation_bytes/used *
// 100, or 0 when nothing is used.
func (a *BuddyAllocator) InternalFragmentation() float64 {
	if a.stats.UsedMemory == 0 {
		return 0
	}
	return float64(a.stats.InternalFragmentationBytes) / float64(a.stats.UsedMemory) * 100
}

// Stats returns a snapshot of the allocator's statistics record.
func (a *BuddyAllocator) Stats() Stats {
	return a.stats
}

// Dump renders the free lists (by order) and the live allocation
// table, matching the original implementation's dump() layout.
func (a *BuddyAllocator) Dump() string {
	var sb strings.Builder
	sb.WriteString("Buddy Free Lists:\n")
	for order, list := range a.freeLists {
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  size %d: ", uint64(1)<<uint(order))
		for _, addr := range list {
			fmt.Fprintf(&sb, "%d ", addr)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Allocated Blocks:\n")
	ids := make([]int, 0, len(a.allocated))
	for id := range a.allocated {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		info := a.allocated[id]
		fmt.Fprintf(&sb, "  id=%d addr=%d size=%d requested=%d\n",
			id, info.addr, uint64(1)<<info.order, info.requested)
	}
	return sb.String()
}
