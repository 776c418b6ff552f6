// Package history answers "when did this file last change, and how often has
// it changed" on a best-effort basis.
package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"sitemapkit/internal/errors"
	"sitemapkit/internal/paths"
	"sitemapkit/internal/slogutil"
)

// Result is the history of one path. A failed query leaves its field at the
// zero value: nil LastModified, zero CommitCount.
type Result struct {
	LastModified *time.Time
	CommitCount  int
}

// Source is a history store. Implementations must be safe for concurrent use.
type Source interface {
	// LastModified returns the most recent change time; ok is false when the
	// path has no history.
	LastModified(ctx context.Context, path string) (t time.Time, ok bool, err error)
	// CommitCount returns the number of changes recorded for path.
	CommitCount(ctx context.Context, path string) (int, error)
}

// Options tune a Lookup. The zero value queries the source directly with no
// timeout, throttle or cache.
type Options struct {
	// Timeout bounds each Lookup call. Zero disables it.
	Timeout time.Duration
	// Limiter throttles queries against the source. Nil disables throttling.
	Limiter *rate.Limiter
	// Cache, when set, is consulted before the source. Only complete answers
	// are stored.
	Cache Cache
	// HeadCommit scopes cache entries; the cache is bypassed when empty.
	HeadCommit string
	// RepoRoot makes absolute paths repo-relative for cache keys.
	RepoRoot string
	Logger   *slog.Logger
}

// Stats counts what a Lookup did.
type Stats struct {
	Lookups   int64 `json:"lookups"`
	Failures  int64 `json:"failures"`
	CacheHits int64 `json:"cacheHits"`
}

// Lookup is the best-effort history lookup. Lookup never returns an error.
type Lookup struct {
	src  Source
	opts Options
	log  *slog.Logger

	lookups   atomic.Int64
	failures  atomic.Int64
	cacheHits atomic.Int64
}

// New creates a Lookup over src.
func New(src Source, opts Options) *Lookup {
	return &Lookup{
		src:  src,
		opts: opts,
		log:  slogutil.OrDiscard(opts.Logger),
	}
}

// NewLimiter returns a limiter admitting perSecond queries, or nil when
// perSecond is not positive.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Lookup returns the history of path. Every failure (untracked path, store
// unavailable, timeout) is logged and degraded to nil / 0.
func (l *Lookup) Lookup(ctx context.Context, path string) Result {
	l.lookups.Add(1)

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	key := l.cacheKey(path)
	if l.cacheable() {
		if res, ok, err := l.opts.Cache.Get(ctx, l.opts.HeadCommit, key); err != nil {
			l.log.Debug("History cache read failed", "path", key, "error", err.Error())
		} else if ok {
			l.cacheHits.Add(1)
			return res
		}
	}

	res, err := l.query(ctx, path)
	if err != nil {
		l.failures.Add(1)
		l.log.Debug("History lookup degraded",
			"path", key,
			"code", string(errors.CodeOf(err)),
			"error", err.Error(),
		)
		return res
	}

	if l.cacheable() {
		if err := l.opts.Cache.Put(ctx, l.opts.HeadCommit, key, res); err != nil {
			l.log.Debug("History cache write failed", "path", key, "error", err.Error())
		}
	}
	return res
}

// Stats returns a snapshot of the counters.
func (l *Lookup) Stats() Stats {
	return Stats{
		Lookups:   l.lookups.Load(),
		Failures:  l.failures.Load(),
		CacheHits: l.cacheHits.Load(),
	}
}

// query issues both questions concurrently. A failure of one keeps the other's
// answer; the returned error joins whatever failed.
func (l *Lookup) query(ctx context.Context, path string) (res Result, err error) {
	var lastErr, countErr error

	var g errgroup.Group
	g.Go(func() error {
		lastErr = l.guard(ctx, func() error {
			t, ok, err := l.src.LastModified(ctx, path)
			if err != nil {
				return err
			}
			if ok {
				res.LastModified = &t
			}
			return nil
		})
		return nil
	})
	g.Go(func() error {
		countErr = l.guard(ctx, func() error {
			n, err := l.src.CommitCount(ctx, path)
			if err != nil {
				return err
			}
			res.CommitCount = n
			return nil
		})
		return nil
	})
	_ = g.Wait()

	return res, stderrors.Join(lastErr, countErr)
}

// guard waits for the throttle, then runs fn with panics turned into errors.
func (l *Lookup) guard(ctx context.Context, fn func() error) (err error) {
	if l.opts.Limiter != nil {
		if err := l.opts.Limiter.Wait(ctx); err != nil {
			return errors.New(errors.Timeout, "History query throttled past its deadline", err)
		}
	}
	defer func() {
		if p := recover(); p != nil {
			err = errors.New(errors.InternalError, "History source panicked", fmt.Errorf("%v", p))
		}
	}()
	return fn()
}

func (l *Lookup) cacheable() bool {
	return l.opts.Cache != nil && l.opts.HeadCommit != ""
}

func (l *Lookup) cacheKey(path string) string {
	if l.opts.RepoRoot == "" || !filepath.IsAbs(path) {
		return paths.NormalizeSlashes(path)
	}
	rel, err := paths.CanonicalizePath(path, l.opts.RepoRoot)
	if err != nil {
		return paths.NormalizeSlashes(path)
	}
	return rel
}

// Unavailable is a Source for deployments without a history store. Every
// query fails with Err, so every lookup degrades to filesystem times.
type Unavailable struct {
	Err error
}

// LastModified implements Source.
func (u Unavailable) LastModified(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, u.err()
}

// CommitCount implements Source.
func (u Unavailable) CommitCount(context.Context, string) (int, error) {
	return 0, u.err()
}

func (u Unavailable) err() error {
	if u.Err != nil {
		return u.Err
	}
	return errors.New(errors.HistoryUnavailable, "no history store configured", nil)
}
