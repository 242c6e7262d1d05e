// Package allocator implements the two placement-strategy memory
// allocators described by the simulator: a free-list allocator with
// first/best/worst-fit placement and coalescing, and a buddy
// allocator with splitting and XOR-buddy merging.
package allocator

// Strategy selects how the list allocator chooses among candidate
// free blocks.
type Strategy int

const (
	FirstFit Strategy = iota
	BestFit
	WorstFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first"
	case BestFit:
		return "best"
	case WorstFit:
		return "worst"
	default:
		return "unknown"
	}
}

// ParseStrategy maps the driver's command-line token (spec §6,
// "set allocator first|best|worst") to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "first":
		return FirstFit, true
	case "best":
		return BestFit, true
	case "worst":
		return WorstFit, true
	default:
		return 0, false
	}
}

// Stats is the statistics record shared by both allocators (spec §3).
type Stats struct {
	TotalMemory                uint64
	UsedMemory                 uint64
	FreeMemory                 uint64
	TotalAllocRequests         uint64
	FailedAllocRequests        uint64
	InternalFragmentationBytes uint64
}

// Utilization returns used/total * 100, or 0 when total is 0.
func (s Stats) Utilization() float64 {
	if s.TotalMemory == 0 {
		return 0
	}
	return float64(s.UsedMemory) / float64(s.TotalMemory) * 100
}

// FailureRate returns failed/total_requests * 100, or 0 when there
// have been no requests.
func (s Stats) FailureRate() float64 {
	if s.TotalAllocRequests == 0 {
		return 0
	}
	return float64(s.FailedAllocRequests) / float64(s.TotalAllocRequests) * 100
}

// Allocator is the capability set both placement strategies satisfy
// (design note §9: "polymorphism over allocators" — a tagged variant
// over a uniform interface rather than a class hierarchy).
type Allocator interface {
	Malloc(size uint64) (int, error)
	Free(id int)
	Dump() string
	Stats() Stats
}
