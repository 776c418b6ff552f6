package history

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"sitemapkit/internal/storage"
)

// Cache stores complete history answers per (headCommit, path).
type Cache interface {
	Get(ctx context.Context, headCommit, path string) (Result, bool, error)
	Put(ctx context.Context, headCommit, path string, res Result) error
}

// TieredCache keeps recent answers in memory in front of an optional
// persistent store.
type TieredCache struct {
	mem        *lru.Cache[string, Result]
	persistent *storage.HistoryCache
}

// NewTieredCache creates a cache holding up to memEntries answers in memory.
// persistent may be nil.
func NewTieredCache(memEntries int, persistent *storage.HistoryCache) (*TieredCache, error) {
	if memEntries < 1 {
		memEntries = 1
	}
	mem, err := lru.New[string, Result](memEntries)
	if err != nil {
		return nil, err
	}
	return &TieredCache{mem: mem, persistent: persistent}, nil
}

func memKey(headCommit, path string) string {
	return headCommit + "\x00" + path
}

// Get implements Cache.
func (c *TieredCache) Get(ctx context.Context, headCommit, path string) (Result, bool, error) {
	key := memKey(headCommit, path)
	if res, ok := c.mem.Get(key); ok {
		return res, true, nil
	}
	if c.persistent == nil {
		return Result{}, false, nil
	}

	entry, ok, err := c.persistent.Get(ctx, headCommit, path)
	if err != nil || !ok {
		return Result{}, false, err
	}
	res := Result{LastModified: entry.LastModified, CommitCount: entry.CommitCount}
	c.mem.Add(key, res)
	return res, true, nil
}

// Put implements Cache.
func (c *TieredCache) Put(ctx context.Context, headCommit, path string, res Result) error {
	c.mem.Add(memKey(headCommit, path), res)
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Put(ctx, headCommit, path, storage.HistoryEntry{
		LastModified: res.LastModified,
		CommitCount:  res.CommitCount,
	})
}

// Len returns the number of answers held in memory.
func (c *TieredCache) Len() int {
	return c.mem.Len()
}
