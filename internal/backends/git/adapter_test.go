package git

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"sitemapkit/internal/errors"
	"sitemapkit/internal/testutil"
)

var (
	jan = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	feb = time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)
	mar = time.Date(2024, 3, 5, 17, 45, 0, 0, time.UTC)
)

func setupTestAdapter(t *testing.T) (*GitAdapter, *testutil.GitRepo) {
	t.Helper()

	repo := testutil.NewGitRepo(t)
	repo.Commit("public/index.html", "v1", jan)
	repo.Commit("public/index.html", "v2", feb)
	repo.Commit("public/img/logo.png", "png", feb)
	repo.Commit("public/index.html", "v3", mar)
	repo.Write("public/untracked.html", "new")

	adapter, err := NewGitAdapter(repo.Root, DefaultQueryTimeout, nil)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	return adapter, repo
}

func TestGitAdapter_ID(t *testing.T) {
	adapter, _ := setupTestAdapter(t)

	if adapter.ID() != BackendID {
		t.Errorf("Expected ID %s, got %s", BackendID, adapter.ID())
	}
	if !adapter.IsAvailable() {
		t.Error("Git adapter should be available in a git repository")
	}
}

func TestNewGitAdapter_NotARepository(t *testing.T) {
	testutil.NewGitRepo(t) // skips without git

	_, err := NewGitAdapter(t.TempDir(), DefaultQueryTimeout, nil)
	if errors.CodeOf(err) != errors.HistoryUnavailable {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.HistoryUnavailable)
	}
}

func TestGitAdapter_LastModified(t *testing.T) {
	adapter, repo := setupTestAdapter(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		path   string
		want   time.Time
		wantOK bool
	}{
		{"relative", "public/index.html", mar, true},
		{"absolute", filepath.Join(repo.Root, "public", "img", "logo.png"), feb, true},
		{"untracked", "public/untracked.html", time.Time{}, false},
		{"missing", "public/nope.html", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := adapter.LastModified(ctx, tt.path)
			if err != nil {
				t.Fatalf("LastModified failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("LastModified = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitAdapter_CommitCount(t *testing.T) {
	adapter, repo := setupTestAdapter(t)
	ctx := context.Background()

	tests := []struct {
		path string
		want int
	}{
		{"public/index.html", 3},
		{filepath.Join(repo.Root, "public", "img", "logo.png"), 1},
		{"public/untracked.html", 0},
	}

	for _, tt := range tests {
		got, err := adapter.CommitCount(ctx, tt.path)
		if err != nil {
			t.Fatalf("CommitCount(%s) failed: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("CommitCount(%s) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestGitAdapter_GlobCharactersInNames(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("* and ? are not valid in windows file names")
	}
	repo := testutil.NewGitRepo(t)
	day := func(d int) time.Time { return time.Date(2023, 1, d, 12, 0, 0, 0, time.UTC) }
	repo.Commit("public/a1.png", "v1", day(1))
	repo.Commit("public/a1.png", "v2", day(2))
	repo.Commit("public/*.html", "star", day(3))
	repo.Commit("public/a[1].png", "brackets", day(4))
	repo.Commit("public/a1.png", "v3", day(5))
	repo.Commit("public/index.html", "home", day(6))
	repo.Commit("public/:top.html", "colon", day(7))

	adapter, err := NewGitAdapter(repo.Root, DefaultQueryTimeout, nil)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		path      string
		wantCount int
		wantTime  time.Time
	}{
		{"public/a[1].png", 1, day(4)},
		{"public/*.html", 1, day(3)},
		{"public/a1.png", 3, day(5)},
		{filepath.Join(repo.Root, "public", "a[1].png"), 1, day(4)},
		{"public/a?.png", 0, time.Time{}},
		{"public/:top.html", 1, day(7)},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := adapter.CommitCount(ctx, tt.path)
			if err != nil {
				t.Fatalf("CommitCount failed: %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("CommitCount = %d, want %d", n, tt.wantCount)
			}

			got, ok, err := adapter.LastModified(ctx, tt.path)
			if err != nil {
				t.Fatalf("LastModified failed: %v", err)
			}
			if ok != !tt.wantTime.IsZero() {
				t.Fatalf("ok = %v, want %v", ok, !tt.wantTime.IsZero())
			}
			if ok && !got.Equal(tt.wantTime) {
				t.Errorf("LastModified = %v, want %v", got, tt.wantTime)
			}
		})
	}
}

func TestGitAdapter_OutsideRepository(t *testing.T) {
	adapter, _ := setupTestAdapter(t)

	_, err := adapter.CommitCount(context.Background(), filepath.Join(t.TempDir(), "x.html"))
	if errors.CodeOf(err) != errors.HistoryUnavailable {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.HistoryUnavailable)
	}
}

func TestGitAdapter_EmptyRepository(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	adapter, err := NewGitAdapter(repo.Root, DefaultQueryTimeout, nil)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	// No HEAD yet: rev-list fails, which callers degrade to zero.
	if _, err := adapter.CommitCount(context.Background(), "a.html"); err == nil {
		t.Error("expected error without HEAD")
	}
}

func TestGitAdapter_Cancelled(t *testing.T) {
	adapter, _ := setupTestAdapter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.CommitCount(ctx, "public/index.html"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGitAdapter_RepoState(t *testing.T) {
	adapter, repo := setupTestAdapter(t)

	state, err := adapter.GetRepoState(context.Background())
	if err != nil {
		t.Fatalf("GetRepoState failed: %v", err)
	}
	if head := repo.Git(time.Time{}, "rev-parse", "HEAD"); state.HeadCommit != head {
		t.Errorf("HeadCommit = %q, want %q", state.HeadCommit, head)
	}
	if state.Shallow {
		t.Error("fresh repository reported as shallow")
	}
}
