package cache

import (
	"fmt"
	"strings"

	"github.com/hybridlab/memsim/internal/logx"
)

const (
	// BlockSize is the number of bytes a single cache block covers;
	// block id = address / BlockSize (spec §3).
	BlockSize = 16

	l1Capacity = 4
	l1HitTime  = 1
	l2Capacity = 8
	l2HitTime  = 5
	l3Capacity = 16
	l3HitTime  = 20

	// MemoryPenalty is the extra cycle cost of a main-memory access on
	// an L3 miss.
	MemoryPenalty = 100
)

// Hierarchy is the three-level inclusive(-on-fill) cache (C6): L1,
// L2, L3, all sharing the same eviction policy, with a serial
// search, strict upward fill-on-hit, and cumulative cycle
// accounting (spec §4.4).
type Hierarchy struct {
	L1, L2, L3 *CacheLevel

	totalAccesses  uint64
	memoryAccesses uint64
	totalCycles    uint64

	l1Hits, l1Misses uint64
	l2Hits, l2Misses uint64
	l3Hits, l3Misses uint64

	logsEnabled bool
}

// NewHierarchy creates a fresh three-level hierarchy using policy at
// every level.
func NewHierarchy(policy Policy) *Hierarchy {
	return &Hierarchy{
		L1: NewCacheLevel(l1Capacity, l1HitTime, policy),
		L2: NewCacheLevel(l2Capacity, l2HitTime, policy),
		L3: NewCacheLevel(l3Capacity, l3HitTime, policy),
	}
}

// EnableLogs turns on the console trace of the access path.
func (h *Hierarchy) EnableLogs() { h.logsEnabled = true }

// DisableLogs turns off the console trace of the access path.
func (h *Hierarchy) DisableLogs() { h.logsEnabled = false }

// EnableFileLog starts mirroring the access-path trace into path,
// matching spec §6's "enable filelog".
func (h *Hierarchy) EnableFileLog(path string) error {
	return logx.EnableFileLog(path)
}

// DisableFileLog stops mirroring the access-path trace to file.
func (h *Hierarchy) DisableFileLog() error {
	return logx.DisableFileLog()
}

// Close releases resources the hierarchy owns — currently just the
// trace file, if one is open (spec §5).
func (h *Hierarchy) Close() error {
	if logx.FileLogEnabled() {
		return logx.DisableFileLog()
	}
	return nil
}

func (h *Hierarchy) trace(msg string, fields logx.Fields) {
	if h.logsEnabled || logx.FileLogEnabled() {
		logx.Trace(msg, fields)
	}
}

// addressToBlock maps a byte address to its cache block id.
func addressToBlock(address uint64) uint64 {
	return address / BlockSize
}

// Access drives one address through the hierarchy: L1 -> L2 -> L3 ->
// main memory, filling strictly upward on every hit below L1, and
// accumulating latency cumulatively across the levels searched
// (spec §4.4).
func (h *Hierarchy) Access(address uint64) {
	h.totalAccesses++
	block := addressToBlock(address)
	h.trace("access", logx.Fields{"address": address, "block": block})

	if h.L1.Access(block) {
		h.l1Hits++
		cycles := h.L1.HitTime()
		h.totalCycles += cycles
		h.trace("l1 hit", logx.Fields{"block": block, "cycles": cycles})
		return
	}
	h.l1Misses++
	h.trace("l1 miss", logx.Fields{"block": block})

	if h.L2.Access(block) {
		h.l2Hits++
		cycles := h.L1.HitTime() + h.L2.HitTime()
		h.totalCycles += cycles
		h.trace("l2 hit", logx.Fields{"block": block, "cycles": cycles})
		h.L1.Insert(block)
		h.trace("loaded into l1", logx.Fields{"block": block})
		return
	}
	h.l2Misses++
	h.trace("l2 miss", logx.Fields{"block": block})

	if h.L3.Access(block) {
		h.l3Hits++
		cycles := h.L1.HitTime() + h.L2.HitTime() + h.L3.HitTime()
		h.totalCycles += cycles
		h.trace("l3 hit", logx.Fields{"block": block, "cycles": cycles})
		h.L2.Insert(block)
		h.L1.Insert(block)
		h.trace("loaded into l2 then l1", logx.Fields{"block": block})
		return
	}
	h.l3Misses++
	h.trace("l3 miss", logx.Fields{"block": block})

	h.memoryAccesses++
	cycles := h.L1.HitTime() + h.L2.HitTime() + h.L3.HitTime() + MemoryPenalty
	h.totalCycles += cycles
	h.trace("main memory access", logx.Fields{"block": block, "cycles": cycles})

	h.L3.Insert(block)
	h.L2.Insert(block)
	h.L1.Insert(block)
	h.trace("loaded into l3 then l2 then l1", logx.Fields{"block": block})
}

// TotalAccesses returns the number of Access calls made so far.
func (h *Hierarchy) TotalAccesses() uint64 { return h.totalAccesses }

// MemoryAccesses returns the number of accesses that missed all
// three levels.
func (h *Hierarchy) MemoryAccesses() uint64 { return h.memoryAccesses }

// TotalCycles returns the accumulated cycle count across every
// access.
func (h *Hierarchy) TotalCycles() uint64 { return h.totalCycles }

func rate(hits, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// L1HitRate, L2HitRate, L3HitRate return level_hits/total_accesses *
// 100, or 0 with no accesses yet.
func (h *Hierarchy) L1HitRate() float64 { return rate(h.l1Hits, h.totalAccesses) }
func (h *Hierarchy) L2HitRate() float64 { return rate(h.l2Hits, h.totalAccesses) }
func (h *Hierarchy) L3HitRate() float64 { return rate(h.l3Hits, h.totalAccesses) }

// OverallHitRate returns (L1+L2+L3 hits)/total_accesses * 100.
func (h *Hierarchy) OverallHitRate() float64 {
	return rate(h.l1Hits+h.l2Hits+h.l3Hits, h.totalAccesses)
}

// AvgAccessTime returns total_cycles/total_accesses, or 0 with no
// accesses yet.
func (h *Hierarchy) AvgAccessTime() float64 {
	if h.totalAccesses == 0 {
		return 0
	}
	return float64(h.totalCycles) / float64(h.totalAccesses)
}

// LevelCounts exposes the raw hit/miss counters, e.g. for a metrics
// exporter (spec §9/§10 expansion).
type LevelCounts struct {
	Hits, Misses uint64
}

// Counts returns the per-level hit/miss counters in L1, L2, L3
// order.
func (h *Hierarchy) Counts() (l1, l2, l3 LevelCounts) {
	return LevelCounts{h.l1Hits, h.l1Misses},
		LevelCounts{h.l2Hits, h.l2Misses},
		LevelCounts{h.l3Hits, h.l3Misses}
}

// Dump renders every level's resident entries, L1 first.
func (h *Hierarchy) Dump() string {
	var sb strings.Builder
	sb.WriteString(h.L1.Dump("L1"))
	sb.WriteString(h.L2.Dump("L2"))
	sb.WriteString(h.L3.Dump("L3"))
	return sb.String()
}

// Stats renders the same summary the original implementation's
// stats() prints: per-level hit/miss/hit-rate, memory accesses,
// overall hit rate, average access time, and the miss-penalty table.
func (h *Hierarchy) Stats() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total accesses: %d\n\n", h.totalAccesses)
	fmt.Fprintf(&sb, "L1 hits: %d  misses: %d  hit rate: %.5f%%\n", h.l1Hits, h.l1Misses, h.L1HitRate())
	fmt.Fprintf(&sb, "L2 hits: %d  misses: %d  hit rate: %.5f%%\n", h.l2Hits, h.l2Misses, h.L2HitRate())
	fmt.Fprintf(&sb, "L3 hits: %d  misses: %d  hit rate: %.5f%%\n", h.l3Hits, h.l3Misses, h.L3HitRate())
	fmt.Fprintf(&sb, "Memory accesses: %d\n\n", h.memoryAccesses)
	fmt.Fprintf(&sb, "Overall hit rate: %.5f%%\n", h.OverallHitRate())
	fmt.Fprintf(&sb, "Average access time: %.5f cycles\n\n", h.AvgAccessTime())
	sb.WriteString("Miss penalties:\n")
	fmt.Fprintf(&sb, "  L1 -> L2: %d cycles\n", h.L2.HitTime())
	fmt.Fprintf(&sb, "  L2 -> L3: %d cycles\n", h.L3.HitTime())
	fmt.Fprintf(&sb, "  L3 -> Memory: %d cycles\n", uint64(MemoryPenalty))
	return sb.String()
}
