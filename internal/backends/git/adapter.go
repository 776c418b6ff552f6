package git

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"sitemapkit/internal/errors"
	"sitemapkit/internal/paths"
	"sitemapkit/internal/repostate"
	"sitemapkit/internal/slogutil"
)

const (
	// BackendID is the unique identifier for the Git backend
	BackendID = "git"

	// DefaultQueryTimeout is the default timeout for git operations (5000ms)
	DefaultQueryTimeout = 5000 * time.Millisecond
)

// GitAdapter answers history queries by shelling out to git.
// It is safe for concurrent use; every query is an independent process.
type GitAdapter struct {
	repoRoot     string
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewGitAdapter creates a new Git backend adapter rooted at repoRoot.
// A zero timeout disables the per-command deadline.
func NewGitAdapter(repoRoot string, timeout time.Duration, logger *slog.Logger) (*GitAdapter, error) {
	logger = slogutil.OrDiscard(logger)

	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, errors.New(errors.InternalError, "Cannot resolve repository root", err)
	}

	adapter := &GitAdapter{
		repoRoot:     abs,
		queryTimeout: timeout,
		logger:       logger,
	}

	if !adapter.IsAvailable() {
		return nil, errors.New(
			errors.HistoryUnavailable,
			"Git is not available in this repository",
			nil,
		).WithDetails(map[string]string{"repoRoot": abs})
	}

	logger.Debug("Git adapter initialized",
		"backend", BackendID,
		"repoRoot", abs,
		"timeout", timeout.String(),
	)

	return adapter, nil
}

// ID returns the backend identifier
func (g *GitAdapter) ID() string {
	return BackendID
}

// RepoRoot returns the absolute repository root
func (g *GitAdapter) RepoRoot() string {
	return g.repoRoot
}

// IsAvailable checks if git is available and this is a git repository
func (g *GitAdapter) IsAvailable() bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	return repostate.IsGitRepository(g.repoRoot)
}

// pathspec converts an absolute path into a repo-relative git pathspec.
// Relative paths are taken to be repo-relative already.
func (g *GitAdapter) pathspec(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return paths.NormalizeSlashes(p), nil
	}
	if !paths.IsWithinRepo(p, g.repoRoot) {
		return "", errors.New(
			errors.HistoryUnavailable,
			"Path is outside the repository",
			nil,
		).WithDetails(map[string]string{"path": p, "repoRoot": g.repoRoot})
	}
	return paths.CanonicalizePath(p, g.repoRoot)
}

// executeGitCommand runs a git command with timeout and returns the output
func (g *GitAdapter) executeGitCommand(ctx context.Context, args ...string) (string, error) {
	if g.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.queryTimeout)
		defer cancel()
	}

	// Paths are file names, never globs or pathspec magic.
	cmd := exec.CommandContext(ctx, "git", append([]string{"--literal-pathspecs"}, args...)...)
	cmd.Dir = g.repoRoot

	g.logger.Debug("Executing git command",
		"args", args,
		"timeout", g.queryTimeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if stderrors.Is(ctxErr, context.DeadlineExceeded) {
				return "", errors.New(
					errors.Timeout,
					"Git command timed out",
					ctxErr,
				).WithDetails(map[string]interface{}{"args": args})
			}
			return "", ctxErr
		}

		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return "", errors.New(
				errors.HistoryUnavailable,
				"Git command failed",
				err,
			).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}

		return "", errors.New(
			errors.HistoryUnavailable,
			"Failed to execute git command",
			err,
		)
	}

	return strings.TrimSpace(string(output)), nil
}
