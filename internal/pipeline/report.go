package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Report summarizes a finished run.
type Report struct {
	RunID      string        `json:"runId"`
	Root       string        `json:"root"`
	State      State         `json:"state"`
	Skipped    bool          `json:"skipped,omitempty"` // crawl root missing
	Discovered int           `json:"discovered"`
	Written    int           `json:"written"`
	Batches    int           `json:"batches"`
	Degraded   int           `json:"degraded"` // records built from the fallback
	MaxCommits int           `json:"maxCommits"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}

// FormatDuration renders d as "1h 2m 3s", dropping leading zero units.
// Sub-second precision is truncated.
func FormatDuration(d time.Duration) string {
	s := int64(d / time.Second)
	if s < 0 {
		s = 0
	}
	h := s / 3600
	s %= 3600
	m := s / 60
	s %= 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh ", h)
	}
	if m > 0 || h > 0 {
		fmt.Fprintf(&b, "%dm ", m)
	}
	fmt.Fprintf(&b, "%ds", s)
	return b.String()
}
