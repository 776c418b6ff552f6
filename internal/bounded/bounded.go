// Package bounded runs a function over a slice with a fixed number of workers.
package bounded

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"sitemapkit/internal/slogutil"
)

// Options tune ForEach.
type Options struct {
	// Logger receives one debug line per failed item.
	Logger *slog.Logger
	// OnStart, when set, is called as each item is claimed. Tests use it to
	// observe the in-flight count.
	OnStart func(index int)
}

// ForEach calls fn for every item using at most k concurrent workers and
// returns results aligned with items.
//
// Workers claim the next unprocessed index from a shared cursor, so one slow
// item only occupies one worker. An item whose fn returns an error or panics
// gets a nil slot; its siblings are unaffected. Once ctx is done, unclaimed
// items are skipped and left nil.
func ForEach[T, R any](ctx context.Context, items []T, k int, fn func(ctx context.Context, item T, index int) (R, error), opts ...Options) []*R {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	logger := slogutil.OrDiscard(o.Logger)

	results := make([]*R, len(items))
	if len(items) == 0 {
		return results
	}
	if k < 1 {
		k = 1
	}
	if k > len(items) {
		k = len(items)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	wg.Add(k)
	for w := 0; w < k; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return
				}
				if ctx.Err() != nil {
					continue
				}
				if o.OnStart != nil {
					o.OnStart(i)
				}
				r, err := call(ctx, fn, items[i], i)
				if err != nil {
					logger.Debug("Work item failed", "index", i, "error", err.Error())
					continue
				}
				// Each index is written by exactly one worker.
				results[i] = &r
			}
		}()
	}
	wg.Wait()

	return results
}

func call[T, R any](ctx context.Context, fn func(context.Context, T, int) (R, error), item T, i int) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, item, i)
}
