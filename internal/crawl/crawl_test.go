package crawl

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"sitemapkit/internal/errors"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return full
}

func urls(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URLPath
	}
	return out
}

func TestWalk_RecognizedFilesAndURLs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "about.html")
	writeFile(t, root, "foo/bar/index.html")
	writeFile(t, root, "img/Logo.PNG")
	writeFile(t, root, "media/intro.mp4")
	writeFile(t, root, "styles/site.css")
	writeFile(t, root, "README")
	writeFile(t, root, "js/app.js")

	entries, err := Walk(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := strings.Join(urls(entries), ",")
	want := "/about.html,/foo/bar,/img/Logo.PNG,/,/media/intro.mp4"
	if got != want {
		t.Errorf("urls = %s, want %s", got, want)
	}

	for _, e := range entries {
		if !strings.HasPrefix(e.URLPath, "/") || strings.Contains(e.URLPath, "//") {
			t.Errorf("malformed url %q", e.URLPath)
		}
		if e.Extension != strings.ToLower(e.Extension) {
			t.Errorf("extension %q not lowercase", e.Extension)
		}
		if !filepath.IsAbs(e.AbsolutePath) {
			t.Errorf("path %q not absolute", e.AbsolutePath)
		}
		if e.FallbackModifiedTime.IsZero() {
			t.Errorf("missing mtime for %s", e.RelPath)
		}
	}
}

func TestWalk_FallbackModifiedTime(t *testing.T) {
	root := t.TempDir()
	full := writeFile(t, root, "page.html")
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(full, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	entries, err := Walk(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if !entries[0].FallbackModifiedTime.Equal(mtime) {
		t.Errorf("mtime = %v, want %v", entries[0].FallbackModifiedTime, mtime)
	}
}

func TestWalk_MissingRootIsSoft(t *testing.T) {
	_, err := Walk(context.Background(), filepath.Join(t.TempDir(), "public"), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.CodeOf(err) != errors.RootMissing {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.RootMissing)
	}
	if !errors.IsSoft(err) {
		t.Error("missing root should be soft")
	}
}

func TestWalk_RootIsFile(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "index.html")

	_, err := Walk(context.Background(), file, Options{})
	if errors.CodeOf(err) != errors.RootMissing {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.RootMissing)
	}
}

func TestWalk_ExcludeDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "drafts/post.html")
	writeFile(t, root, "draftsfolder/keep.html")

	entries, err := Walk(context.Background(), root, Options{ExcludeDirs: []string{"drafts", " "}})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := strings.Join(urls(entries), ",")
	if got != "/draftsfolder/keep.html,/" {
		t.Errorf("urls = %s", got)
	}
}

func TestWalk_Filters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "secret.html")

	deny := FilterFunc(func(e FileEntry) (bool, string) {
		return e.URLPath != "/secret.html", "test"
	})
	entries, err := Walk(context.Background(), root, Options{Filters: []Filter{deny}})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(entries) != 1 || entries[0].URLPath != "/" {
		t.Errorf("urls = %v", urls(entries))
	}
}

func TestWalk_SymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, root, "a/page.html")
	if err := os.Symlink(root, filepath.Join(root, "a", "loop")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	for _, follow := range []bool{false, true} {
		entries, err := Walk(context.Background(), root, Options{FollowSymlinks: follow})
		if err != nil {
			t.Fatalf("Walk(follow=%v) failed: %v", follow, err)
		}
		if len(entries) != 1 || entries[0].URLPath != "/a/page.html" {
			t.Errorf("follow=%v: urls = %v", follow, urls(entries))
		}
	}
}

func TestWalk_FollowSymlinkedDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	writeFile(t, outside, "clip.webm")

	root := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "media")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	entries, err := Walk(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("symlinked dir followed without FollowSymlinks: %v", urls(entries))
	}

	entries, err = Walk(context.Background(), root, Options{FollowSymlinks: true})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(entries) != 1 || entries[0].URLPath != "/media/clip.webm" {
		t.Errorf("urls = %v", urls(entries))
	}
}

func TestWalk_SymlinkSortingBeforeTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeFile(t, root, "z-real/x.html")
	writeFile(t, root, "z-real/deep/y.png")
	if err := os.Symlink(filepath.Join(root, "z-real"), filepath.Join(root, "a-link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "z-real", "deep"), filepath.Join(root, "b-deep-link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	entries, err := Walk(context.Background(), root, Options{FollowSymlinks: true})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := strings.Join(urls(entries), ",")
	if got != "/z-real/deep/y.png,/z-real/x.html" {
		t.Errorf("urls = %s, want files under their real paths only", got)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Walk(ctx, root, Options{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestIsRecognized(t *testing.T) {
	for _, ext := range []string{".html", ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif", ".mp4", ".webm", ".mov"} {
		if !IsRecognized(ext) {
			t.Errorf("%s should be recognized", ext)
		}
	}
	for _, ext := range []string{".htm", ".css", ".js", ".pdf", "", ".HTML"} {
		if IsRecognized(ext) {
			t.Errorf("%q should not be recognized", ext)
		}
	}
}

func TestRobotsFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "private/report.html")
	writeFile(t, root, "img/logo.png")
	robots := "User-agent: *\nDisallow: /private/\n"
	if err := os.WriteFile(filepath.Join(root, "robots.txt"), []byte(robots), 0o644); err != nil {
		t.Fatal(err)
	}

	rf, err := LoadRobotsFilter(root, "")
	if err != nil {
		t.Fatalf("LoadRobotsFilter failed: %v", err)
	}
	entries, err := Walk(context.Background(), root, Options{Filters: []Filter{rf}})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := strings.Join(urls(entries), ",")
	if got != "/img/logo.png,/" {
		t.Errorf("urls = %s", got)
	}
}

func TestLoadRobotsFilter_Missing(t *testing.T) {
	rf, err := LoadRobotsFilter(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadRobotsFilter failed: %v", err)
	}
	if rf != nil {
		t.Error("expected nil filter without robots.txt")
	}
	if ok, _ := rf.Allow(FileEntry{URLPath: "/x"}); !ok {
		t.Error("nil filter should allow everything")
	}
}
