package crawl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/temoto/robotstxt"
)

// DefaultUserAgent is the robots.txt group consulted by RobotsFilter.
const DefaultUserAgent = "*"

// RobotsFilter drops URLs disallowed by the site's own robots.txt.
type RobotsFilter struct {
	group *robotstxt.Group
}

// LoadRobotsFilter parses <root>/robots.txt. A site without one gets a nil
// filter and a nil error; callers skip nil filters.
func LoadRobotsFilter(root, userAgent string) (*RobotsFilter, error) {
	data, err := os.ReadFile(filepath.Join(root, "robots.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	robots, err := robotstxt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsFilter{group: robots.FindGroup(userAgent)}, nil
}

// Allow implements Filter.
func (r *RobotsFilter) Allow(entry FileEntry) (bool, string) {
	if r == nil || r.group == nil {
		return true, ""
	}
	if r.group.Test(entry.URLPath) {
		return true, ""
	}
	return false, "disallowed by robots.txt"
}
