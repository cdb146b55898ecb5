// Package parallel provides the map-then-reduce helpers used by the
// embarrassingly parallel loops in this module: cross-validation grid
// evaluation, per-query prediction batches and wild-bootstrap resampling.
// Shared inputs are read-only across workers; callers gather results into
// slices indexed by item, so no locking is needed.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides the specified total number (items) according to the number
// of CPU cores, and executes the specified function (fn) in parallel for each
// range (start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of
// items exceeds the threshold. Below the threshold the work runs sequentially,
// avoiding goroutine overhead on small batches.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Parallelize(items, fn)
}

// ParallelizeIndexed executes fn once per item index. It is a convenience for
// loops whose per-item state (a bootstrap resample, a CV grid point) is
// independent and written to a caller-owned slot at that index. The output is
// deterministic regardless of worker scheduling as long as fn(i) depends only
// on i and read-only shared inputs.
func ParallelizeIndexed(items int, fn func(i int)) {
	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
