// Package pipeline drives a sitemap run: walk the site, look up history in
// bounded batches, score, and stream records to a sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitemapkit/internal/bounded"
	"sitemapkit/internal/crawl"
	"sitemapkit/internal/errors"
	"sitemapkit/internal/history"
	"sitemapkit/internal/scoring"
	"sitemapkit/internal/sitemap"
	"sitemapkit/internal/slogutil"
)

const (
	DefaultBatchSize     = 20
	DefaultConcurrency   = 40
	DefaultProgressEvery = 5
)

// HistoryLookup is the best-effort history query used for enrichment.
// *history.Lookup implements it.
type HistoryLookup interface {
	Lookup(ctx context.Context, path string) history.Result
}

// SinkOpener opens the record sink. It is called only after the walk found
// the crawl root, so a skipped run creates no output.
type SinkOpener func() (sitemap.Sink, error)

// Options configure an Orchestrator.
type Options struct {
	Root          string
	BatchSize     int
	Concurrency   int
	ProgressEvery int
	Walk          crawl.Options
	// Now is the reference time for change frequencies. Defaults to time.Now.
	Now      func() time.Time
	Observer Observer
	Logger   *slog.Logger
}

// Orchestrator runs the pipeline once.
type Orchestrator struct {
	history HistoryLookup
	open    SinkOpener
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator. Zero-valued tuning options take their defaults.
func New(h HistoryLookup, open SinkOpener, opts Options) *Orchestrator {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = ObserverFuncs{}
	}
	return &Orchestrator{
		history: h,
		open:    open,
		opts:    opts,
		logger:  slogutil.OrDiscard(opts.Logger),
		state:   StateIdle,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	o.logger.Debug("Pipeline state changed", "from", string(from), "to", string(to))
	o.opts.Observer.StateChanged(from, to)
}

// Run executes the pipeline. A missing crawl root is not an error: the run
// ends in StateDone with Report.Skipped set and no sink is opened.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	switch s := o.State(); {
	case s.IsTerminal():
		return nil, errors.New(errors.InternalError, fmt.Sprintf("pipeline already finished (%s)", s), nil)
	case s != StateIdle:
		return nil, errors.New(errors.InternalError, fmt.Sprintf("pipeline already running (%s)", s), nil)
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Root:      o.opts.Root,
		StartedAt: time.Now().UTC(),
	}
	logger := o.logger.With(slogutil.RunIDKey, report.RunID)

	err := o.run(ctx, logger, report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		o.transition(StateFailed)
		report.State = StateFailed
		return report, err
	}
	o.transition(StateDone)
	report.State = StateDone
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	o.transition(StateWalking)

	walkOpts := o.opts.Walk
	if walkOpts.Logger == nil {
		walkOpts.Logger = logger
	}
	entries, err := crawl.Walk(ctx, o.opts.Root, walkOpts)
	if err != nil {
		if errors.IsSoft(err) {
			logger.Warn("Crawl root does not exist, skipping sitemap", "root", o.opts.Root)
			report.Skipped = true
			return nil
		}
		return err
	}
	report.Discovered = len(entries)
	logger.Info(fmt.Sprintf("Crawled %d files, fetching git metadata in parallel...", len(entries)))

	sink, err := o.open()
	if err != nil {
		return err
	}
	ended := false
	defer func() {
		if !ended {
			if abortErr := sink.Abort(); abortErr != nil {
				logger.Warn("Failed to discard partial output", "error", abortErr.Error())
			}
		}
	}()

	batches := (len(entries) + o.opts.BatchSize - 1) / o.opts.BatchSize
	report.Batches = batches
	now := o.opts.Now()
	var tracker scoring.MaxTracker

	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.transition(StateEnrichingBatch)

		start := i * o.opts.BatchSize
		end := start + o.opts.BatchSize
		if end > len(entries) {
			end = len(entries)
		}

		records, degraded := o.enrichBatch(ctx, logger, entries[start:end], &tracker, now)
		// A cancelled batch has nil slots that are not history failures.
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Degraded += degraded

		for _, rec := range records {
			if err := sink.Write(rec); err != nil {
				return err
			}
			report.Written++
		}

		if (i+1)%o.opts.ProgressEvery == 0 || i == batches-1 {
			logger.Info(fmt.Sprintf("Processed %d/%d files...", report.Written, len(entries)))
		}
		o.opts.Observer.BatchDone(Progress{
			Batch:     i + 1,
			Batches:   batches,
			Processed: report.Written,
			Total:     len(entries),
		})
	}

	o.transition(StateFinalizing)
	n, err := sink.End()
	ended = true
	if err != nil {
		return err
	}
	report.Written = n
	report.MaxCommits = tracker.Max()
	logger.Info(fmt.Sprintf("Sitemap base built with %d entries", n))
	return nil
}

type enriched struct {
	entry       crawl.FileEntry
	lastmod     string
	commitCount int
}

// enrichBatch looks up history for a batch and scores it. The running maximum
// absorbs the whole batch before any of its records is scored, so a record's
// priority is relative to every count seen up to and including its batch.
func (o *Orchestrator) enrichBatch(ctx context.Context, logger *slog.Logger, batch []crawl.FileEntry, tracker *scoring.MaxTracker, now time.Time) ([]sitemap.Record, int) {
	results := bounded.ForEach(ctx, batch, o.opts.Concurrency,
		func(ctx context.Context, e crawl.FileEntry, _ int) (history.Result, error) {
			return o.history.Lookup(ctx, e.AbsolutePath), nil
		},
		bounded.Options{Logger: logger},
	)

	degraded := 0
	items := make([]enriched, len(batch))
	for j, e := range batch {
		item := enriched{entry: e, lastmod: sitemap.FormatTimestamp(e.FallbackModifiedTime)}
		if res := results[j]; res != nil {
			item.commitCount = res.CommitCount
			if res.LastModified != nil {
				item.lastmod = sitemap.FormatTimestamp(*res.LastModified)
			}
		} else if ctx.Err() == nil {
			degraded++
			logger.Warn("History lookup failed, using filesystem time", "url", e.URLPath)
		}
		tracker.Observe(item.commitCount)
		items[j] = item
	}

	records := make([]sitemap.Record, len(items))
	for j, item := range items {
		records[j] = sitemap.Record{
			Loc:         item.entry.URLPath,
			Lastmod:     item.lastmod,
			Ext:         item.entry.Extension,
			CommitCount: item.commitCount,
			Priority:    scoring.Priority(item.commitCount, tracker.Max()),
			Changefreq:  scoring.ChangeFreqOf(item.lastmod, now),
		}
	}
	return records, degraded
}
