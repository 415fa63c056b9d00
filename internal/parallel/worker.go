// Package parallel runs independent per-column work on a bounded pool of
// goroutines and returns results in input order.
package parallel

import (
	"runtime"
	"sync"
)

// WorkerPool bounds how many goroutines Map uses.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a pool. A non-positive size means runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// Map applies worker to every item using fan-out/fan-in and returns the
// results in the order of items. A nil pool runs sequentially.
func Map[T, R any](wp *WorkerPool, items []T, worker func(int, T) R) []R {
	if len(items) == 0 {
		return nil
	}

	results := make([]R, len(items))
	if wp == nil || wp.numWorkers == 1 || len(items) == 1 {
		for i, item := range items {
			results[i] = worker(i, item)
		}
		return results
	}

	itemCh := make(chan indexedItem[T], len(items))
	for i, item := range items {
		itemCh <- indexedItem[T]{index: i, value: item}
	}
	close(itemCh)

	workers := min(wp.numWorkers, len(items))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for item := range itemCh {
				// Each index is written by exactly one goroutine.
				results[item.index] = worker(item.index, item.value)
			}
		}()
	}
	wg.Wait()

	return results
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}
