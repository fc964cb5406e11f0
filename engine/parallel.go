package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StaggerDelay separates worker start times so their tables diverge early.
const StaggerDelay = 5 * time.Millisecond

/*
SearchParallel runs a lazy SMP search: workers independent searches of pos
share tt and nothing else. Worker i starts i*StaggerDelay after the first.

The result is the one of the last worker in join order, not the best scoring
one. Every worker searches the same depth so the results only differ through
table timing.
*/
func SearchParallel(ctx context.Context, pos *Position, depth, workers int, tt *TransTable, opts SearchOptions) (SearchResult, error) {
	workers = Max(workers, 1)
	if tt == nil {
		tt = NewTransTable()
	}
	log.Debug().Int("workers", workers).Int("depth", depth).Msg("using-lazy-smp")

	var (
		mu      sync.Mutex
		results = make([]SearchResult, 0, workers)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		i := i
		root := pos.Clone()
		g.Go(func() error {
			if i > 0 {
				select {
				case <-time.After(time.Duration(i) * StaggerDelay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			res, err := Search(gctx, root, depth, tt, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			log.Debug().Int("worker", i).Str("move", res.Move.String()).
				Str("score", ScoreString(res.Score)).Msg("worker-done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}
	tt.LogStats()
	return pickResult(results), nil
}

// pickResult takes the result of the worker that finished last.
func pickResult(results []SearchResult) SearchResult {
	return results[len(results)-1]
}
