package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// GitRepo is a throwaway repository for tests that need real history.
type GitRepo struct {
	t    *testing.T
	Root string
}

// NewGitRepo initializes an empty repository in a temp dir.
// The test is skipped when no git binary is on PATH.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	r := &GitRepo{t: t, Root: root}
	r.Git(time.Time{}, "init", "-q")
	r.Git(time.Time{}, "config", "user.email", "builder@example.org")
	r.Git(time.Time{}, "config", "user.name", "Site Builder")
	r.Git(time.Time{}, "config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository. A non-zero when pins both the
// author and committer dates.
func (r *GitRepo) Git(when time.Time, args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+r.Root)
	if !when.IsZero() {
		stamp := when.Format(time.RFC3339)
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+stamp, "GIT_COMMITTER_DATE="+stamp)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Write creates or overwrites rel (slash-separated) under the repo root.
func (r *GitRepo) Write(rel, content string) string {
	r.t.Helper()

	full := filepath.Join(r.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write: %v", err)
	}
	return full
}

// Commit writes rel with content and commits it at when.
func (r *GitRepo) Commit(rel, content string, when time.Time) {
	r.t.Helper()

	r.Write(rel, content)
	r.Git(when, "--literal-pathspecs", "add", "--", rel)
	r.Git(when, "commit", "-q", "-m", fmt.Sprintf("update %s", rel))
}
