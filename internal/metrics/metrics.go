// Package metrics exposes the allocator and cache statistics records
// as Prometheus collectors. Collection is synchronous — the driver
// calls Observe* after each command — so it never touches core state
// from a background goroutine (see SPEC_FULL.md §10).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hybridlab/memsim/allocator"
	"github.com/hybridlab/memsim/cache"
)

// Registry bundles the collectors the driver registers once at
// startup and updates after every command.
type Registry struct {
	reg *prometheus.Registry

	allocTotalBytes    prometheus.Gauge
	allocUsedBytes     prometheus.Gauge
	allocExternalFrag  prometheus.Gauge
	allocInternalFrag  prometheus.Gauge
	allocFailedTotal   prometheus.Gauge

	cacheHits     *prometheus.GaugeVec
	cacheMisses   *prometheus.GaugeVec
	cacheCycles   prometheus.Gauge
	cacheAccesses prometheus.Gauge
}

// New creates a Registry with every collector registered against a
// fresh prometheus.Registry (not the global DefaultRegisterer, so
// multiple simulator instances in the same process don't collide).
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.allocTotalBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_allocator_total_bytes",
		Help: "Size of the allocator's arena in bytes.",
	})
	r.allocUsedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_allocator_used_bytes",
		Help: "Bytes currently allocated.",
	})
	r.allocExternalFrag = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_allocator_external_fragmentation_ratio",
		Help: "External fragmentation, as a percentage.",
	})
	r.allocInternalFrag = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_allocator_internal_fragmentation_ratio",
		Help: "Internal fragmentation, as a percentage (buddy allocator only).",
	})
	r.allocFailedTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_allocator_failed_requests_total",
		Help: "Allocation requests that failed.",
	})
	r.cacheHits = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "memsim_cache_hits_total",
		Help: "Cache hits per level.",
	}, []string{"level"})
	r.cacheMisses = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "memsim_cache_misses_total",
		Help: "Cache misses per level.",
	}, []string{"level"})
	r.cacheCycles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_cache_total_cycles",
		Help: "Accumulated cycle count across every hierarchy access.",
	})
	r.cacheAccesses = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memsim_cache_total_accesses",
		Help: "Total hierarchy accesses observed.",
	})

	r.reg.MustRegister(
		r.allocTotalBytes, r.allocUsedBytes, r.allocExternalFrag,
		r.allocInternalFrag, r.allocFailedTotal,
		r.cacheHits, r.cacheMisses, r.cacheCycles, r.cacheAccesses,
	)
	return r
}

// Gatherer exposes the underlying collector set for promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ExternalFragmenter is satisfied by both allocator implementations.
type ExternalFragmenter interface {
	ExternalFragmentation() float64
}

// ObserveAllocator refreshes the allocator gauges from a Stats
// snapshot plus the external fragmentation value, which isn't part
// of the Stats record itself (it's derived from live block/order
// layout, not a running counter).
func (r *Registry) ObserveAllocator(stats allocator.Stats, externalFrag float64) {
	r.allocTotalBytes.Set(float64(stats.TotalMemory))
	r.allocUsedBytes.Set(float64(stats.UsedMemory))
	r.allocExternalFrag.Set(externalFrag)
	if stats.UsedMemory > 0 {
		r.allocInternalFrag.Set(float64(stats.InternalFragmentationBytes) / float64(stats.UsedMemory) * 100)
	} else {
		r.allocInternalFrag.Set(0)
	}
	r.allocFailedTotal.Set(float64(stats.FailedAllocRequests))
}

// ObserveHierarchy refreshes the cache gauges from a live Hierarchy.
func (r *Registry) ObserveHierarchy(h *cache.Hierarchy) {
	l1, l2, l3 := h.Counts()
	r.cacheHits.WithLabelValues("l1").Set(float64(l1.Hits))
	r.cacheHits.WithLabelValues("l2").Set(float64(l2.Hits))
	r.cacheHits.WithLabelValues("l3").Set(float64(l3.Hits))
	r.cacheMisses.WithLabelValues("l1").Set(float64(l1.Misses))
	r.cacheMisses.WithLabelValues("l2").Set(float64(l2.Misses))
	r.cacheMisses.WithLabelValues("l3").Set(float64(l3.Misses))
	r.cacheCycles.Set(float64(h.TotalCycles()))
	r.cacheAccesses.Set(float64(h.TotalAccesses()))
}
