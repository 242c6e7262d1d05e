package allocator

import (
	"fmt"
	"strings"

	"github.com/hybridlab/memsim/internal/logx"
	"github.com/pkg/errors"
)

// block is one extent of the list allocator's chain (C1). The chain
// is intrusive — splitting and coalescing only ever touch a node's
// immediate neighbours.
type block struct {
	start uint64
	size  uint64
	free  bool
	id    int

	prev *block
	next *block
}

// ListAllocator is a free-list allocator over a fixed arena, placing
// requests by first/best/worst fit (C2).
type ListAllocator struct {
	head     *block
	total    uint64
	nextID   int
	strategy Strategy
	stats    Stats
}

// NewListAllocator creates a list allocator over an arena of size
// total, seeded with one free block covering [0, total).
func NewListAllocator(total uint64, strategy Strategy) *ListAllocator {
	logx.Debug("creating list allocator", logx.Fields{"total": total, "strategy": strategy.String()})
	a := &ListAllocator{
		head:     &block{start: 0, size: total, free: true, id: FailureID},
		total:    total,
		nextID:   1,
		strategy: strategy,
	}
	a.stats.TotalMemory = total
	a.stats.FreeMemory = total
	return a
}

// findFreeBlock scans the chain in address order for a candidate
// satisfying the configured strategy (spec §4.1).
func (a *ListAllocator) findFreeBlock(size uint64) *block {
	var best *block
	for b := a.head; b != nil; b = b.next {
		if !b.free || b.size < size {
			continue
		}
		switch a.strategy {
		case FirstFit:
			return b
		case BestFit:
			if best == nil || b.size < best.size {
				best = b
			}
		case WorstFit:
			if best == nil || b.size > best.size {
				best = b
			}
		}
	}
	return best
}

// splitBlock truncates chosen to size and inserts a new free block
// for the remainder immediately after it, when chosen is strictly
// larger than size.
func (a *ListAllocator) splitBlock(chosen *block, size uint64) {
	if chosen.size == size {
		return
	}
	remainder := &block{
		start: chosen.start + size,
		size:  chosen.size - size,
		free:  true,
		id:    FailureID,
		prev:  chosen,
		next:  chosen.next,
	}
	if chosen.next != nil {
		chosen.next.prev = remainder
	}
	chosen.next = remainder
	chosen.size = size
}

// Malloc allocates size bytes under the configured placement
// strategy. Returns FailureID and a wrapped ErrZeroSize/ErrNoSpace on
// failure; stats are updated regardless (spec §4.1).
func (a *ListAllocator) Malloc(size uint64) (int, error) {
	a.stats.TotalAllocRequests++
	if size == 0 {
		a.stats.FailedAllocRequests++
		return FailureID, errors.Wrap(ErrZeroSize, "list allocator malloc")
	}

	chosen := a.findFreeBlock(size)
	if chosen == nil {
		a.stats.FailedAllocRequests++
		logx.Debug("list malloc failed", logx.Fields{"size": size, "strategy": a.strategy.String()})
		return FailureID, errors.Wrapf(ErrNoSpace, "list allocator malloc(%d)", size)
	}

	a.splitBlock(chosen, size)
	chosen.free = false
	chosen.id = a.nextID
	a.nextID++

	a.stats.UsedMemory += size
	a.stats.FreeMemory = a.total - a.stats.UsedMemory

	logx.Debug("list malloc ok", logx.Fields{"id": chosen.id, "start": chosen.start, "size": size})
	return chosen.id, nil
}

func (a *ListAllocator) findByID(id int) *block {
	for b := a.head; b != nil; b = b.next {
		if !b.free && b.id == id {
			return b
		}
	}
	return nil
}

// coalesce absorbs a free successor first, then a free predecessor,
// so a freshly-freed block can merge on both sides in one call (spec
// §4.1 prescribes this exact order).
func (a *ListAllocator) coalesce(b *block) {
	if b.next != nil && b.next.free {
		succ := b.next
		b.size += succ.size
		b.next = succ.next
		if succ.next != nil {
			succ.next.prev = b
		}
	}
	if b.prev != nil && b.prev.free {
		pred := b.prev
		pred.size += b.size
		pred.next = b.next
		if b.next != nil {
			b.next.prev = pred
		}
	}
}

// Free marks id's block free and coalesces it with free neighbours.
// Unknown ids are a silent no-op (spec §7, error kind 3).
func (a *ListAllocator) Free(id int) {
	b := a.findByID(id)
	if b == nil {
		logx.Debug("list free: unknown id", logx.Fields{"id": id})
		return
	}

	b.free = true
	b.id = FailureID
	a.stats.UsedMemory -= b.size
	a.stats.FreeMemory = a.total - a.stats.UsedMemory

	a.coalesce(b)

	logx.Debug("list free ok", logx.Fields{"id": id})
}

// ExternalFragmentation returns (total_free-largest_free)/total_free
// * 100, or 0 when there is no free memory (spec §4.1).
func (a *ListAllocator) ExternalFragmentation() float64 {
	var totalFree, largest uint64
	for b := a.head; b != nil; b = b.next {
		if b.free {
			totalFree += b.size
			if b.size > largest {
				largest = b.size
			}
		}
	}
	if totalFree == 0 {
		return 0
	}
	return float64(totalFree-largest) / float64(totalFree) * 100
}

// Stats returns a snapshot of the allocator's statistics record.
func (a *ListAllocator) Stats() Stats {
	return a.stats
}

// Dump renders the block chain as "[start-end] FREE" / "USED (id=N)"
// lines, matching the original implementation's dump() layout.
func (a *ListAllocator) Dump() string {
	var sb strings.Builder
	for b := a.head; b != nil; b = b.next {
		end := b.start + b.size - 1
		if b.free {
			fmt.Fprintf(&sb, "[0x%04x - 0x%04x] FREE\n", b.start, end)
		} else {
			fmt.Fprintf(&sb, "[0x%04x - 0x%04x] USED (id=%d)\n", b.start, end, b.id)
		}
	}
	return sb.String()
}
