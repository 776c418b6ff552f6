package git

import (
	"context"
	"strconv"
	"time"

	"sitemapkit/internal/errors"
)

// LastModified returns the committer time of the most recent commit touching
// path. ok is false when the path has no history.
func (g *GitAdapter) LastModified(ctx context.Context, path string) (t time.Time, ok bool, err error) {
	spec, err := g.pathspec(path)
	if err != nil {
		return time.Time{}, false, err
	}

	// %ct = committer date, unix seconds
	out, err := g.executeGitCommand(ctx, "log", "-1", "--format=%ct", "--", spec)
	if err != nil {
		return time.Time{}, false, err
	}
	if out == "" {
		return time.Time{}, false, nil
	}

	secs, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.New(
			errors.HistoryUnavailable,
			"Unexpected git log output",
			err,
		).WithDetails(map[string]string{"path": spec, "output": out})
	}
	return time.Unix(secs, 0).UTC(), true, nil
}

// CommitCount returns the number of commits reachable from HEAD that touch path.
func (g *GitAdapter) CommitCount(ctx context.Context, path string) (int, error) {
	spec, err := g.pathspec(path)
	if err != nil {
		return 0, err
	}

	out, err := g.executeGitCommand(ctx, "rev-list", "--count", "HEAD", "--", spec)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, errors.New(
			errors.HistoryUnavailable,
			"Unexpected git rev-list output",
			err,
		).WithDetails(map[string]string{"path": spec, "output": out})
	}
	return n, nil
}
