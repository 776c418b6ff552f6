package repostate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"sitemapkit/internal/errors"
)

const (
	// EmptyHash represents an empty diff/list hash
	EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// RepoState identifies the history a sitemap run was computed against.
// Cached history results are only valid while HeadCommit is unchanged.
type RepoState struct {
	RepoStateID string `json:"repoStateId"`
	HeadCommit  string `json:"headCommit"`
	// Shallow clones truncate commit counts.
	Shallow    bool   `json:"shallow"`
	ComputedAt string `json:"computedAt"`
}

// Compute reads the current HEAD and shallow flag of the repository at repoRoot.
func Compute(ctx context.Context, repoRoot string) (*RepoState, error) {
	headCommit, err := gitRevParse(ctx, repoRoot, "HEAD")
	if err != nil {
		return nil, errors.New(
			errors.HistoryUnavailable,
			"Failed to get HEAD commit",
			err,
		).WithDetails(map[string]string{"repoRoot": repoRoot})
	}

	shallow := false
	if out, err := gitRevParse(ctx, repoRoot, "--is-shallow-repository"); err == nil {
		shallow = out == "true"
	}

	return &RepoState{
		RepoStateID: hashString(headCommit + ":" + repoRoot),
		HeadCommit:  headCommit,
		Shallow:     shallow,
		ComputedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// gitRevParse executes git rev-parse
func gitRevParse(ctx context.Context, repoRoot string, args ...string) (string, error) {
	fullArgs := append([]string{"rev-parse"}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Dir = repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// hashString computes SHA256 hash of a string
func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	h := sha256.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// IsGitRepository checks if the given path is inside a git work tree
func IsGitRepository(repoRoot string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = repoRoot
	err := cmd.Run()
	return err == nil
}
