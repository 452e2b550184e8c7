package openfinance

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEachOwner runs fn for every owner with at most workers runs in flight.
// One owner's failure does not stop the others; failures are returned by owner id.
func ForEachOwner(ctx context.Context, ownerIDs []int64, workers int, fn func(context.Context, int64) error) map[int64]error {
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		failed = make(map[int64]error)
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for _, id := range ownerIDs {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
				return nil
			}
			if err := fn(ctx, id); err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return failed
}
