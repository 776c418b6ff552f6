package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryEntry is one cached history answer.
type HistoryEntry struct {
	// LastModified is nil when the path had no history at HeadCommit.
	LastModified *time.Time
	CommitCount  int
}

// HistoryCache stores history answers keyed by (headCommit, path).
type HistoryCache struct {
	db *DB
}

// NewHistoryCache creates a cache over db
func NewHistoryCache(db *DB) *HistoryCache {
	return &HistoryCache{db: db}
}

// Get retrieves the entry for path at headCommit.
func (c *HistoryCache) Get(ctx context.Context, headCommit, path string) (HistoryEntry, bool, error) {
	var lastModified sql.NullInt64
	var count int

	err := c.db.conn.QueryRowContext(ctx, `
		SELECT last_modified, commit_count
		FROM history_cache
		WHERE head_commit = ? AND path = ?
	`, headCommit, path).Scan(&lastModified, &count)

	if err == sql.ErrNoRows {
		return HistoryEntry{}, false, nil
	}
	if err != nil {
		return HistoryEntry{}, false, fmt.Errorf("history cache lookup failed: %w", err)
	}

	entry := HistoryEntry{CommitCount: count}
	if lastModified.Valid {
		t := time.Unix(lastModified.Int64, 0).UTC()
		entry.LastModified = &t
	}
	return entry, true, nil
}

// Put stores the entry for path at headCommit, replacing any previous value.
func (c *HistoryCache) Put(ctx context.Context, headCommit, path string, entry HistoryEntry) error {
	var lastModified sql.NullInt64
	if entry.LastModified != nil {
		lastModified = sql.NullInt64{Int64: entry.LastModified.Unix(), Valid: true}
	}

	_, err := c.db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO history_cache (head_commit, path, last_modified, commit_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, headCommit, path, lastModified, entry.CommitCount, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to set history cache: %w", err)
	}
	return nil
}

// Prune deletes every row not computed at headCommit and returns how many went.
func (c *HistoryCache) Prune(ctx context.Context, headCommit string) (int64, error) {
	var removed int64
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM history_cache WHERE head_commit != ?`, headCommit)
		if err != nil {
			return fmt.Errorf("failed to prune history cache: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// Count returns the number of cached rows for headCommit.
func (c *HistoryCache) Count(ctx context.Context, headCommit string) (int, error) {
	var n int
	err := c.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history_cache WHERE head_commit = ?`, headCommit).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history cache count failed: %w", err)
	}
	return n, nil
}
