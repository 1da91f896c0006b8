// Package scheduler fans independent jobs out to a bounded worker pool and
// collects results in completion order.
package scheduler

import (
	"context"
	"sync"
)

const DefaultWorkers = 2

// Run executes fn for every spec on at most workers goroutines. Results are
// appended by a single collector in the order jobs finish, and onDone (if
// set) is called from that collector after each append.
//
// Cancelling ctx stops dispatching new specs. Jobs already handed to a
// worker run to completion, so the result may be shorter than specs.
func Run[S, R any](ctx context.Context, specs []S, workers int, fn func(context.Context, S) R, onDone func(r R, done, total int)) []R {
	if len(specs) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	jobCh := make(chan S)
	resCh := make(chan R)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobCh {
				resCh <- fn(ctx, s)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, s := range specs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobCh <- s:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resCh)
	}()

	out := make([]R, 0, len(specs))
	for r := range resCh {
		out = append(out, r)
		if onDone != nil {
			onDone(r, len(out), len(specs))
		}
	}
	return out
}
