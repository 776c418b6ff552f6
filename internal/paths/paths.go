package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IndexFile collapses to its containing directory in site URLs
const IndexFile = "index.html"

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Converts backslashes to forward slashes
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(p string, repoRoot string) bool {
	canonical, err := CanonicalizePath(p, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizeSlashes converts backslashes to forward slashes and collapses
// runs of slashes into one.
func NormalizeSlashes(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for _, r := range p {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SiteURL derives the site-relative URL for a path relative to the crawl root.
//
// index.html (case-insensitive) maps to its containing directory, with the
// crawl root itself mapping to "/". Every other file maps to "/" + rel.
// The result always starts with "/" and never contains "//".
func SiteURL(rel string) string {
	rel = strings.Trim(NormalizeSlashes(rel), "/")
	if rel == "." {
		rel = ""
	}

	dir, name := path.Split(rel)
	if strings.EqualFold(name, IndexFile) {
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			return "/"
		}
		return "/" + dir
	}
	return "/" + rel
}
