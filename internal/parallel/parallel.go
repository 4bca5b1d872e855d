// Package parallel runs independent evaluations concurrently, one tape per
// worker.
//
// A Tape and its arena are single-threaded by construction. Instead of
// sharing one, ForEach gives every worker goroutine its own state, created
// once and reused for all the items that worker picks up.
package parallel

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// ForEach calls f(ctx, state, i) for every i in [0, n).
//
// Each worker calls newState once and passes the result to every item it
// processes, so state (typically an *autodiff.Tape) is never shared between
// goroutines. Items are handed out in increasing order but may finish in any
// order.
//
// The first error returned by f cancels the context passed to the remaining
// calls; workers stop picking up new items and ForEach returns that error.
// With parallelism disabled, or a single worker, items run sequentially on
// the calling goroutine.
func ForEach[S any](ctx context.Context, n int, newState func() S, f func(ctx context.Context, state S, i int) error, cfg Config) error {
	workers := cfg.NumWorkers
	if !cfg.Enabled || workers <= 1 || n <= 1 {
		// Sequential fallback.
		state := newState()
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, state, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	var next atomic.Int64
	for w := 0; w < min(workers, n); w++ {
		g.Go(func() error {
			state := newState()
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := f(ctx, state, i); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
