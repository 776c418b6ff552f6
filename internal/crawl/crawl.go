// Package crawl enumerates the files of a built static site that belong in the sitemap.
package crawl

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sitemapkit/internal/errors"
	"sitemapkit/internal/paths"
	"sitemapkit/internal/slogutil"
)

// HTMLExtension is the only markup extension the crawler recognizes.
const HTMLExtension = ".html"

var (
	// ImageExtensions are the recognized image extensions.
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif"}
	// VideoExtensions are the recognized video extensions.
	VideoExtensions = []string{".mp4", ".webm", ".mov"}
)

var recognized = func() map[string]bool {
	m := map[string]bool{HTMLExtension: true}
	for _, ext := range ImageExtensions {
		m[ext] = true
	}
	for _, ext := range VideoExtensions {
		m[ext] = true
	}
	return m
}()

// IsRecognized reports whether ext (lowercase, with dot) belongs in the sitemap.
func IsRecognized(ext string) bool {
	return recognized[ext]
}

// FileEntry is a discovered file prior to history enrichment. It is never mutated.
type FileEntry struct {
	AbsolutePath string
	// RelPath is relative to the crawl root, slash-separated.
	RelPath   string
	URLPath   string
	Extension string
	// FallbackModifiedTime is the filesystem mtime, used when history has nothing.
	FallbackModifiedTime time.Time
}

// Filter decides whether a discovered entry is emitted.
// reason is logged when the entry is dropped.
type Filter interface {
	Allow(entry FileEntry) (ok bool, reason string)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(entry FileEntry) (bool, string)

// Allow implements Filter.
func (f FilterFunc) Allow(entry FileEntry) (bool, string) { return f(entry) }

// Options tune a walk. The zero value walks everything and does not follow symlinks.
type Options struct {
	// ExcludeDirs are skipped entirely; relative entries are resolved against the root.
	ExcludeDirs []string
	// FollowSymlinks descends into symlinked directories after the real tree.
	// Each real directory is visited at most once, so link cycles terminate
	// and a link to a directory inside the root adds nothing.
	FollowSymlinks bool
	Filters        []Filter
	Logger         *slog.Logger
}

// Walk enumerates every recognized regular file under root.
//
// A missing root yields an error with code ROOT_MISSING; callers treat it as
// a soft skip. The result is sorted by RelPath.
func Walk(ctx context.Context, root string, opts Options) ([]FileEntry, error) {
	logger := slogutil.OrDiscard(opts.Logger)

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.RootMissing, "crawl root does not exist", err).
				WithDetails(map[string]string{"root": root})
		}
		return nil, errors.New(errors.InternalError, "cannot stat crawl root", err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.RootMissing, "crawl root is not a directory", nil).
			WithDetails(map[string]string{"root": root})
	}

	w := &walker{
		ctx:      ctx,
		root:     root,
		opts:     opts,
		logger:   logger,
		excluded: buildExcluded(root, opts.ExcludeDirs),
		visited:  make(map[string]bool),
		entries:  make([]FileEntry, 0, 128),
	}
	if err := w.walkDir(root); err != nil {
		return nil, err
	}
	// Symlinked directories go last so that files reachable through a real
	// path are always emitted under it.
	for len(w.links) > 0 {
		link := w.links[0]
		w.links = w.links[1:]
		if err := w.walkDir(link); err != nil {
			return nil, err
		}
	}

	sort.Slice(w.entries, func(i, j int) bool { return w.entries[i].RelPath < w.entries[j].RelPath })
	return w.entries, nil
}

type walker struct {
	ctx      context.Context
	root     string
	opts     Options
	logger   *slog.Logger
	excluded []string
	visited  map[string]bool
	links    []string
	entries  []FileEntry
}

func (w *walker) walkDir(dir string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if w.visited[real] {
		w.logger.Debug("Skipping already visited directory", "dir", dir, "real", real)
		return nil
	}
	w.visited[real] = true

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, d := range dirents {
		full := filepath.Join(dir, d.Name())
		if isExcluded(full, w.excluded) {
			continue
		}

		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil {
				w.logger.Warn("Skipping broken symlink", "path", full, "error", err.Error())
				continue
			}
			if target.IsDir() {
				if w.opts.FollowSymlinks {
					w.links = append(w.links, full)
				}
				continue
			}
			mode = target.Mode().Type()
		}

		if d.IsDir() {
			if err := w.walkDir(full); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() {
			continue
		}

		if err := w.visitFile(full, d.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitFile(full, name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !IsRecognized(ext) {
		return nil
	}

	info, err := os.Stat(full)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(w.root, full)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)

	entry := FileEntry{
		AbsolutePath:         full,
		RelPath:              rel,
		URLPath:              paths.SiteURL(rel),
		Extension:            ext,
		FallbackModifiedTime: info.ModTime(),
	}

	for _, f := range w.opts.Filters {
		if ok, reason := f.Allow(entry); !ok {
			w.logger.Debug("Excluding file from sitemap", "url", entry.URLPath, "reason", reason)
			return nil
		}
	}

	w.entries = append(w.entries, entry)
	return nil
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(p string, excluded []string) bool {
	p = filepath.Clean(p)
	for _, base := range excluded {
		if p == base || strings.HasPrefix(p, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
