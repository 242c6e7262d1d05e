package main

import (
	"fmt"

	"github.com/hybridlab/memsim/allocator"
	"github.com/hybridlab/memsim/cache"
	"github.com/hybridlab/memsim/internal/metrics"
)

// session holds the driver's mutable state across commands — the
// driver is an external collaborator of the core per SPEC_FULL.md §1:
// it sequences calls into the allocator and cache rather than
// reimplementing them.
type session struct {
	alloc      allocator.Allocator
	allocKind  string // "first", "best", "worst", "buddy", or "" if unset
	memorySize uint64

	hierarchy   *cache.Hierarchy
	cachePolicy cache.Policy

	metricsReg *metrics.Registry
}

// allocatorKind returns the token passed to the last "set allocator
// ..." command ("first", "best", "worst", "buddy"), or "none" when no
// allocator has been configured yet — surfaced by "stats memory" and
// "dump memory" so the command table's kind-selection isn't silent
// internal state.
func (s *session) allocatorKind() string {
	if s.allocKind == "" {
		return "none"
	}
	return s.allocKind
}

func newSession() *session {
	return &session{cachePolicy: cache.LRU}
}

// externalFragmentation returns the active allocator's external
// fragmentation, dispatching on its concrete type since that metric
// isn't part of the shared Allocator interface (each strategy derives
// it from different live state — the block chain vs. the free
// lists).
func (s *session) externalFragmentation() float64 {
	switch a := s.alloc.(type) {
	case *allocator.ListAllocator:
		return a.ExternalFragmentation()
	case *allocator.BuddyAllocator:
		return a.ExternalFragmentation()
	default:
		return 0
	}
}

func (s *session) observeMetrics() {
	if s.metricsReg == nil {
		return
	}
	if s.alloc != nil {
		s.metricsReg.ObserveAllocator(s.alloc.Stats(), s.externalFragmentation())
	}
	if s.hierarchy != nil {
		s.metricsReg.ObserveHierarchy(s.hierarchy)
	}
}

// initMemory implements "init memory <N>" (spec §6): it clears any
// existing allocator and remembers the new arena size without
// constructing one (the original driver's exact behaviour, §11.2).
func (s *session) initMemory(size uint64) string {
	s.alloc = nil
	s.allocKind = ""
	s.memorySize = size
	return fmt.Sprintf("Initialized memory of size %d", size)
}

// initCache implements "init cache": (re)creates the hierarchy using
// the current policy.
func (s *session) initCache() string {
	if s.hierarchy != nil {
		_ = s.hierarchy.Close()
	}
	s.hierarchy = cache.NewHierarchy(s.cachePolicy)
	return "Cache initialized"
}

// setAllocator implements "set allocator first|best|worst|buddy".
func (s *session) setAllocator(arg string) (string, error) {
	if s.memorySize == 0 {
		return "Initialize memory first", nil
	}

	if strat, ok := allocator.ParseStrategy(arg); ok {
		s.alloc = allocator.NewListAllocator(s.memorySize, strat)
		s.allocKind = arg
		return fmt.Sprintf("Allocator set to %s", arg), nil
	}

	if arg == "buddy" {
		buddy, err := allocator.NewBuddyAllocator(s.memorySize)
		if err != nil {
			return "", err
		}
		s.alloc = buddy
		s.allocKind = arg
		return "Allocator set to buddy", nil
	}

	return "Unknown allocator", nil
}

// setPolicy implements "set policy fifo|lru|lfu": it always
// recreates the hierarchy, discarding any in-flight cache state
// (spec §11.2 — the original never migrates entries across a policy
// change, and the spec is silent on how it would).
func (s *session) setPolicy(arg string) string {
	policy, ok := cache.ParsePolicy(arg)
	if !ok {
		return "Unknown cache policy"
	}
	s.cachePolicy = policy
	if s.hierarchy != nil {
		_ = s.hierarchy.Close()
	}
	s.hierarchy = cache.NewHierarchy(policy)
	return fmt.Sprintf("Cache policy set to %s", arg)
}
