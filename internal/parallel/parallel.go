// Package parallel runs independent per-point work across a bounded number
// of goroutines while keeping results addressable by scan index.
package parallel

import (
	"fmt"
	"runtime"
)

// For calls fn(i) for every i in [0, n) using at most workers goroutines.
// fn must only write to state owned by index i. When several calls fail the
// error from the lowest index is returned, so failures are reproducible
// regardless of scheduling.
func For(n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	type result struct {
		index int
		err   error
	}
	tasks := make(chan int)
	results := make(chan result)

	for w := 0; w < workers; w++ {
		go func() {
			for i := range tasks {
				results <- result{index: i, err: safeCall(fn, i)}
			}
		}()
	}

	go func() {
		for i := 0; i < n; i++ {
			tasks <- i
		}
		close(tasks)
	}()

	firstIdx := -1
	var firstErr error
	for completed := 0; completed < n; completed++ {
		res := <-results
		if res.err != nil && (firstIdx < 0 || res.index < firstIdx) {
			firstIdx = res.index
			firstErr = res.err
		}
	}
	return firstErr
}

// safeCall converts a panic in fn into an error so one bad point cannot
// take down the whole pool.
func safeCall(fn func(int) error, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("point %d: panic: %v", i, r)
		}
	}()
	return fn(i)
}
