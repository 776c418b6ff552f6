package main

import (
	"context"
	"log/slog"
	"time"

	gitbackend "sitemapkit/internal/backends/git"
	"sitemapkit/internal/config"
	"sitemapkit/internal/crawl"
	"sitemapkit/internal/history"
	"sitemapkit/internal/htmlmeta"
	"sitemapkit/internal/pipeline"
	"sitemapkit/internal/sitemap"
	"sitemapkit/internal/storage"
	"sitemapkit/internal/submodules"
)

// generate wires history, filters and the output sink from cfg and runs one
// sitemap pipeline.
func generate(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*pipeline.Report, error) {
	lookupOpts := history.Options{
		Timeout:  cfg.HistoryTimeout(),
		Limiter:  history.NewLimiter(cfg.History.RatePerSecond),
		RepoRoot: cfg.RepoRootPath(),
		Logger:   logger,
	}

	var src history.Source
	adapter, err := gitbackend.NewGitAdapter(cfg.RepoRootPath(), cfg.HistoryTimeout(), logger)
	if err != nil {
		logger.Warn("Git history unavailable, using filesystem times", "error", err.Error())
		src = history.Unavailable{Err: err}
	} else {
		src = adapter
		lookupOpts.RepoRoot = adapter.RepoRoot()
		if cfg.History.Cache.Enabled {
			closeCache, err := attachCache(ctx, cfg, adapter, &lookupOpts, logger)
			if err != nil {
				return nil, err
			}
			defer closeCache()
		}
	}
	lookup := history.New(src, lookupOpts)

	walk, err := crawlOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	open := func() (sitemap.Sink, error) {
		if dryRun {
			return sitemap.NewMemorySink(), nil
		}
		return sitemap.Create(cfg.OutputPath())
	}

	orch := pipeline.New(lookup, open, pipeline.Options{
		Root:          cfg.RootPath(),
		BatchSize:     cfg.BatchSize,
		Concurrency:   cfg.Concurrency,
		ProgressEvery: cfg.ProgressEvery,
		Walk:          walk,
		Logger:        logger,
	})

	report, err := orch.Run(ctx)
	stats := lookup.Stats()
	logger.Debug("History lookups finished",
		"lookups", stats.Lookups,
		"failures", stats.Failures,
		"cacheHits", stats.CacheHits,
	)
	return report, err
}

// attachCache opens the persistent history cache for the current HEAD.
// A repository without commits runs uncached.
func attachCache(ctx context.Context, cfg *config.Config, adapter *gitbackend.GitAdapter, opts *history.Options, logger *slog.Logger) (func(), error) {
	state, err := adapter.GetRepoState(ctx)
	if err != nil {
		logger.Warn("Cannot read HEAD, history cache disabled", "error", err.Error())
		return func() {}, nil
	}

	db, err := storage.Open(cfg.CachePath(), logger)
	if err != nil {
		return nil, err
	}
	persistent := storage.NewHistoryCache(db)
	if removed, err := persistent.Prune(ctx, state.HeadCommit); err != nil {
		logger.Warn("Failed to prune history cache", "error", err.Error())
	} else if removed > 0 {
		logger.Debug("Pruned stale history cache entries", "removed", removed)
	}

	tiered, err := history.NewTieredCache(cfg.History.Cache.MemoryEntries, persistent)
	if err != nil {
		db.Close()
		return nil, err
	}
	opts.Cache = tiered
	opts.HeadCommit = state.HeadCommit
	return func() {
		logger.Debug("Closing history cache", "memoryEntries", tiered.Len(), "path", db.Path())
		_ = db.Close()
	}, nil
}

func crawlOptions(cfg *config.Config, logger *slog.Logger) (crawl.Options, error) {
	opts := crawl.Options{
		ExcludeDirs:    cfg.Crawl.ExcludeDirs,
		FollowSymlinks: cfg.Crawl.FollowSymlinks,
		Logger:         logger,
	}
	if cfg.Crawl.RespectRobots {
		robots, err := crawl.LoadRobotsFilter(cfg.RootPath(), crawl.DefaultUserAgent)
		if err != nil {
			return opts, err
		}
		if robots != nil {
			opts.Filters = append(opts.Filters, robots)
		}
	}
	if cfg.Crawl.RespectNoindex {
		opts.Filters = append(opts.Filters, htmlmeta.NoindexFilter{Logger: logger})
	}
	return opts, nil
}

func modulesFromConfig(mods []config.SubmoduleConfig) []submodules.Module {
	out := make([]submodules.Module, len(mods))
	for i, m := range mods {
		out[i] = submodules.Module{Name: m.Name, Command: m.Command}
	}
	return out
}

func formatElapsed(start time.Time) string {
	return pipeline.FormatDuration(time.Since(start))
}
