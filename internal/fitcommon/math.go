// Package fitcommon holds helpers shared by the command-line tools: numeric
// clamps, worker-count parsing, a bounded worker pool and mayfly setup.
package fitcommon

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParseWorkers parses a worker count flag. "auto" yields 0.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

// ResolveWorkers turns a parsed worker count into a concrete one: 0 means
// GOMAXPROCS, and the result never exceeds jobs (when jobs > 0).
func ResolveWorkers(workers, jobs int) int {
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if jobs > 0 {
		workers = MinInt(workers, jobs)
	}
	return MaxInt(workers, 1)
}
