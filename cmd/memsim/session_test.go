package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, script string) string {
	t.Helper()
	var out bytes.Buffer
	err := runLoop(strings.NewReader(script), &out)
	require.NoError(t, err)
	return out.String()
}

func TestDriverAllocateFreeRoundTrip(t *testing.T) {
	out := run(t, strings.Join([]string{
		"init memory 1024",
		"set allocator first",
		"malloc 100",
		"stats memory",
		"free 1",
		"stats memory",
		"exit",
	}, "\n"))

	assert.Contains(t, out, "Initialized memory of size 1024")
	assert.Contains(t, out, "Allocator set to first")
	assert.Contains(t, out, "Allocated id=1")
	assert.Contains(t, out, "Used memory: 100")
	assert.Contains(t, out, "Used memory: 0")
}

func TestDriverFailureRateOnlyAfterARequest(t *testing.T) {
	out := run(t, strings.Join([]string{
		"init memory 16",
		"set allocator first",
		"stats memory",
		"malloc 100",
		"stats memory",
		"exit",
	}, "\n"))

	sections := strings.Split(out, "Total memory: 16")
	require.Len(t, sections, 3)
	// First stats call: no requests made yet, no failure-rate line.
	assert.NotContains(t, sections[1], "Failed alloc requests")
	// Second stats call: one failed request, line now present.
	assert.Contains(t, sections[2], "Failed alloc requests: 1")
}

func TestDriverBuddyRejectsNonPowerOfTwo(t *testing.T) {
	out := run(t, strings.Join([]string{
		"init memory 100",
		"set allocator buddy",
		"exit",
	}, "\n"))

	assert.Contains(t, out, "error:")
}

func TestDriverCacheAccessAndDump(t *testing.T) {
	out := run(t, strings.Join([]string{
		"init cache",
		"access 0",
		"access 16",
		"access 0",
		"dump cache",
		"stats cache",
		"exit",
	}, "\n"))

	assert.Contains(t, out, "Cache initialized")
	assert.Contains(t, out, "Access complete")
	assert.Contains(t, out, "L1 Cache:")
	assert.Contains(t, out, "Total accesses: 3")
}

func TestDriverUnknownCommand(t *testing.T) {
	out := run(t, "bogus\nexit")
	assert.Contains(t, out, "Unknown command: bogus")
}

func TestDriverMallocWithoutAllocatorConfigured(t *testing.T) {
	out := run(t, "malloc 10\nexit")
	assert.Contains(t, out, "No allocator configured")
}

func TestDriverPolicyChangeResetsHierarchy(t *testing.T) {
	out := run(t, strings.Join([]string{
		"init cache",
		"access 0",
		"access 0",
		"set policy fifo",
		"dump cache",
		"exit",
	}, "\n"))

	assert.Contains(t, out, "Cache policy set to fifo")
	assert.Contains(t, out, "[empty]")
}
