package git

import (
	"context"

	"sitemapkit/internal/repostate"
)

// GetRepoState returns the current repository state
func (g *GitAdapter) GetRepoState(ctx context.Context) (*repostate.RepoState, error) {
	g.logger.Debug("Computing repository state", "repoRoot", g.repoRoot)

	state, err := repostate.Compute(ctx, g.repoRoot)
	if err != nil {
		return nil, err
	}

	if state.Shallow {
		g.logger.Warn("Repository is a shallow clone, commit counts will be truncated",
			"repoRoot", g.repoRoot,
		)
	}

	g.logger.Debug("Repository state computed",
		"repoStateId", state.RepoStateID,
		"headCommit", state.HeadCommit,
	)

	return state, nil
}
