// Package profiling is a lightweight per-frame CPU profiler. Callers wrap
// work with Track; the frame loop resets the totals at the start of each
// frame and reads them back at the end.
package profiling

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("batcher.DrawEverything")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame clears the totals. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	return maps.Clone(frameTotals)
}

// SumWithPrefix adds up every bucket whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var total time.Duration
	for name, d := range frameTotals {
		if strings.HasPrefix(name, prefix) {
			total += d
		}
	}
	return total
}

// TopN formats the n largest buckets, largest first, ties by name.
// Example: "batcher.DrawEverything:4.2ms, glfw.SwapBuffers:2.1ms"
func TopN(n int) string {
	ss := Snapshot()
	names := slices.Collect(maps.Keys(ss))
	slices.SortFunc(names, func(a, b string) int {
		if ss[a] != ss[b] {
			if ss[a] > ss[b] {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	n = min(n, len(names))
	parts := make([]string, 0, n)
	for _, name := range names[:n] {
		parts = append(parts, name+":"+formatMs(ss[name]))
	}
	return strings.Join(parts, ", ")
}

// formatMs keeps one decimal and drops a trailing ".0".
func formatMs(d time.Duration) string {
	s := fmt.Sprintf("%.1f", float64(d.Microseconds())/1000.0)
	return strings.TrimSuffix(s, ".0") + "ms"
}
