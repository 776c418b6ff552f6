// Package htmlmeta reads indexing directives out of built HTML pages.
package htmlmeta

import (
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitemapkit/internal/crawl"
	"sitemapkit/internal/slogutil"
)

// Directives are the robots meta directives a page declares for all crawlers.
type Directives struct {
	NoIndex bool
	// Canonical is the href of <link rel="canonical">, if any.
	Canonical string
}

// Parse extracts directives from an HTML document.
func Parse(r io.Reader) (Directives, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Directives{}, err
	}

	var d Directives
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "robots") {
			return
		}
		content, _ := s.Attr("content")
		for _, tok := range strings.Split(content, ",") {
			switch strings.ToLower(strings.TrimSpace(tok)) {
			case "noindex", "none":
				d.NoIndex = true
			}
		}
	})
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		d.Canonical = strings.TrimSpace(href)
	}
	return d, nil
}

// ParseFile extracts directives from the HTML file at path.
func ParseFile(path string) (Directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return Directives{}, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// CanonicalPath returns the path part of href in site URL form: no trailing
// slash, no index.html. ok is false for an empty or unparseable href.
func CanonicalPath(href string) (p string, ok bool) {
	if href == "" {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	p = u.Path
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	p = strings.TrimSuffix(p, "index.html")
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p, true
}

// NoindexFilter drops HTML pages that opt out of indexing, and pages whose
// canonical link names a different page.
// Unreadable pages are kept; the sitemap should not shrink on I/O noise.
type NoindexFilter struct {
	Logger *slog.Logger
}

// Allow implements crawl.Filter.
func (f NoindexFilter) Allow(entry crawl.FileEntry) (bool, string) {
	if entry.Extension != crawl.HTMLExtension {
		return true, ""
	}
	d, err := ParseFile(entry.AbsolutePath)
	if err != nil {
		slogutil.OrDiscard(f.Logger).Warn("Could not parse page for robots meta",
			"path", entry.AbsolutePath,
			"error", err.Error(),
		)
		return true, ""
	}
	if d.NoIndex {
		return false, "robots meta noindex"
	}
	if canon, ok := CanonicalPath(d.Canonical); ok && canon != entry.URLPath {
		return false, "canonical is " + canon
	}
	return true, ""
}
