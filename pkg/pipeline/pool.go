package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dasmlab/polyglot/pkg/translate"
)

// runOrdered calls fn for every index in [0,n) on at most workers goroutines.
// Callers write results into a slice by index, so output order never depends
// on completion order.
//
// With failFast set, the first error cancels the context passed to fn and no
// further index is started. Without it every index runs regardless of errors.
// The first error observed is returned.
func runOrdered(ctx context.Context, n, workers int, failFast bool, fn func(ctx context.Context, i int) error) error {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, workers)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		stopped  atomic.Bool
	)

	for i := 0; i < n; i++ {
		if stopped.Load() {
			break
		}
		sem <- struct{}{}
		// A worker may have failed while we waited for the slot.
		if stopped.Load() {
			<-sem
			break
		}

		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			translate.WorkerBusy(1)
			defer translate.WorkerBusy(-1)

			if err := fn(ctx, i); err != nil {
				errOnce.Do(func() { firstErr = err })
				if failFast {
					stopped.Store(true)
					cancel()
				}
			}
		}(i)
	}

	wg.Wait()
	return firstErr
}
