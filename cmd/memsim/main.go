// Command memsim is an interactive memory-hierarchy simulator: a
// dynamic allocator (first/best/worst-fit free list, or buddy) and an
// independent three-level inclusive-on-fill cache, both driven from
// the same command loop (spec §6).
package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hybridlab/memsim/allocator"
	"github.com/hybridlab/memsim/internal/logx"
	"github.com/hybridlab/memsim/internal/metrics"
)

var metricsAddr string

func main() {
	root := &cobra.Command{
		Use:   "memsim",
		Short: "Interactive memory allocator and cache hierarchy simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	if err := root.Execute(); err != nil {
		logx.Fatal("fatal error", logx.Fields{"error": err.Error()})
	}
}

// runLoop reads commands line by line from in and writes responses to
// out until EOF or "exit"/"quit" (spec §6).
func runLoop(in io.Reader, out io.Writer) error {
	s := newSession()

	if metricsAddr != "" {
		s.metricsReg = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.metricsReg.Gatherer(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logx.Error("metrics server stopped", logx.Fields{"error": err.Error()})
			}
		}()
		fmt.Fprintf(out, "Serving metrics on %s/metrics\n", metricsAddr)
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "memsim> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if quit := dispatch(s, line, out); quit {
				break
			}
		}
		fmt.Fprint(out, "memsim> ")
	}
	if s.hierarchy != nil {
		_ = s.hierarchy.Close()
	}
	return scanner.Err()
}

// dispatch parses and executes one command line, returning true when
// the REPL should stop.
func dispatch(s *session, line string, out io.Writer) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "exit", "quit":
		return true

	case "init":
		handleInit(s, args, out)

	case "set":
		handleSet(s, args, out)

	case "malloc":
		handleMalloc(s, args, out)

	case "free":
		handleFree(s, args, out)

	case "access":
		handleAccess(s, args, out)

	case "dump":
		handleDump(s, args, out)

	case "stats":
		handleStats(s, args, out)

	case "enable":
		handleEnable(s, args, out)

	case "disable":
		handleDisable(s, args, out)

	default:
		fmt.Fprintf(out, "Unknown command: %s\n", cmd)
	}

	s.observeMetrics()
	return false
}

func handleInit(s *session, args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: init memory <N> | init cache")
		return
	}
	switch args[0] {
	case "memory":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: init memory <N>")
			return
		}
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil || n == 0 {
			fmt.Fprintln(out, "invalid memory size")
			return
		}
		fmt.Fprintln(out, s.initMemory(n))
	case "cache":
		fmt.Fprintln(out, s.initCache())
	default:
		fmt.Fprintln(out, "usage: init memory <N> | init cache")
	}
}

func handleSet(s *session, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: set allocator first|best|worst|buddy | set policy fifo|lru|lfu")
		return
	}
	switch args[0] {
	case "allocator":
		msg, err := s.setAllocator(args[1])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintln(out, msg)
	case "policy":
		fmt.Fprintln(out, s.setPolicy(args[1]))
	default:
		fmt.Fprintln(out, "usage: set allocator first|best|worst|buddy | set policy fifo|lru|lfu")
	}
}

func handleMalloc(s *session, args []string, out io.Writer) {
	if s.alloc == nil {
		fmt.Fprintln(out, "No allocator configured")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: malloc <size>")
		return
	}
	size, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(out, "invalid size")
		return
	}
	id, err := s.alloc.Malloc(size)
	if err != nil {
		fmt.Fprintf(out, "malloc failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Allocated id=%d\n", id)
}

func handleFree(s *session, args []string, out io.Writer) {
	if s.alloc == nil {
		fmt.Fprintln(out, "No allocator configured")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: free <id>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(out, "invalid id")
		return
	}
	s.alloc.Free(id)
	fmt.Fprintln(out, "Freed")
}

func handleAccess(s *session, args []string, out io.Writer) {
	if s.hierarchy == nil {
		fmt.Fprintln(out, "Initialize cache first")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: access <address>")
		return
	}
	addr, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(out, "invalid address")
		return
	}
	s.hierarchy.Access(addr)
	fmt.Fprintln(out, "Access complete")
}

func handleDump(s *session, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: dump memory | dump cache")
		return
	}
	switch args[0] {
	case "memory":
		if s.alloc == nil {
			fmt.Fprintln(out, "No allocator configured")
			return
		}
		fmt.Fprintf(out, "Allocator: %s\n", s.allocatorKind())
		fmt.Fprint(out, s.alloc.Dump())
	case "cache":
		if s.hierarchy == nil {
			fmt.Fprintln(out, "Initialize cache first")
			return
		}
		fmt.Fprint(out, s.hierarchy.Dump())
	default:
		fmt.Fprintln(out, "usage: dump memory | dump cache")
	}
}

func handleStats(s *session, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: stats memory | stats cache")
		return
	}
	switch args[0] {
	case "memory":
		if s.alloc == nil {
			fmt.Fprintln(out, "No allocator configured")
			return
		}
		fmt.Fprint(out, renderAllocatorStats(s))
	case "cache":
		if s.hierarchy == nil {
			fmt.Fprintln(out, "Initialize cache first")
			return
		}
		fmt.Fprint(out, s.hierarchy.Stats())
	default:
		fmt.Fprintln(out, "usage: stats memory | stats cache")
	}
}

// renderAllocatorStats formats the Stats record plus the derived
// utilization/failure-rate/fragmentation metrics (spec §11.1): the
// failure rate line is only printed once a request has actually been
// made, matching the original implementation's conditional print.
func renderAllocatorStats(s *session) string {
	st := s.alloc.Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Allocator: %s\n", s.allocatorKind())
	fmt.Fprintf(&sb, "Total memory: %d\n", st.TotalMemory)
	fmt.Fprintf(&sb, "Used memory: %d\n", st.UsedMemory)
	fmt.Fprintf(&sb, "Free memory: %d\n", st.FreeMemory)
	fmt.Fprintf(&sb, "Utilization: %.5f%%\n", st.Utilization())
	fmt.Fprintf(&sb, "Total alloc requests: %d\n", st.TotalAllocRequests)
	if st.TotalAllocRequests > 0 {
		fmt.Fprintf(&sb, "Failed alloc requests: %d (%.5f%%)\n", st.FailedAllocRequests, st.FailureRate())
	}
	fmt.Fprintf(&sb, "External fragmentation: %.5f%%\n", s.externalFragmentation())
	if buddy, ok := s.alloc.(*allocator.BuddyAllocator); ok {
		fmt.Fprintf(&sb, "Internal fragmentation: %.5f%%\n", buddy.InternalFragmentation())
	}
	return sb.String()
}

func handleEnable(s *session, args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: enable logs | enable filelog <path>")
		return
	}
	switch args[0] {
	case "logs":
		logx.SetLevel(logx.LevelDebug)
		if s.hierarchy != nil {
			s.hierarchy.EnableLogs()
		}
		fmt.Fprintln(out, "Logging enabled")
	case "filelog":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: enable filelog <path>")
			return
		}
		if s.hierarchy != nil {
			if err := s.hierarchy.EnableFileLog(args[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				return
			}
		} else if err := logx.EnableFileLog(args[1]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintln(out, "File logging enabled")
	default:
		fmt.Fprintln(out, "usage: enable logs | enable filelog <path>")
	}
}

func handleDisable(s *session, args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: disable logs | disable filelog")
		return
	}
	switch args[0] {
	case "logs":
		logx.SetLevel(logx.LevelInfo)
		if s.hierarchy != nil {
			s.hierarchy.DisableLogs()
		}
		fmt.Fprintln(out, "Logging disabled")
	case "filelog":
		if s.hierarchy != nil {
			_ = s.hierarchy.DisableFileLog()
		} else {
			_ = logx.DisableFileLog()
		}
		fmt.Fprintln(out, "File logging disabled")
	default:
		fmt.Fprintln(out, "usage: disable logs | disable filelog")
	}
}
