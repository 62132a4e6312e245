package fitcommon

import (
	"context"
	"sync"
	"sync/atomic"
)

// ForEach calls fn(ctx, i) for i in [0,n) on at most workers goroutines.
// Indices are handed out in order. Once ctx is done no new index starts.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) {
	workers = ResolveWorkers(workers, n)
	var next int64 = -1
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				i := int(atomic.AddInt64(&next, 1))
				if i >= n {
					return
				}
				fn(ctx, i)
			}
		}()
	}
	wg.Wait()
}

// ReserveEval atomically claims the next evaluation number, failing once
// maxEvals have been handed out.
func ReserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}
