// Package parallel splits row ranges across CPU cores.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallelize divides items into one contiguous [start, end) range per
// CPU core and runs fn on each range concurrently. It returns the first
// error any range reports, after every range has finished.
func Parallelize(items int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := min(runtime.NumCPU(), items)
	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for start := 0; start < items; start += chunkSize {
		end := min(start+chunkSize, items)
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and through Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int) error) error {
	if items <= threshold {
		return fn(0, items)
	}
	return Parallelize(items, fn)
}
