package git

import (
	"context"
	"time"

	"sitemapkit/internal/repostate"
)

// Backend represents a generic backend interface
type Backend interface {
	// ID returns the unique identifier for this backend
	ID() string

	// IsAvailable checks if the backend is available and functional
	IsAvailable() bool
}

// HistoryBackend extends Backend with per-path history queries.
// Implementations must be safe for concurrent use.
type HistoryBackend interface {
	Backend

	// LastModified returns the time of the most recent change to path
	LastModified(ctx context.Context, path string) (time.Time, bool, error)

	// CommitCount returns the number of commits touching path
	CommitCount(ctx context.Context, path string) (int, error)

	// GetRepoState identifies the history the answers come from
	GetRepoState(ctx context.Context) (*repostate.RepoState, error)
}

var _ HistoryBackend = (*GitAdapter)(nil)
