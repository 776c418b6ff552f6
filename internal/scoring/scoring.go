// Package scoring derives sitemap priority and change frequency from history.
package scoring

import (
	"time"
)

// ChangeFreq is a sitemap <changefreq> value.
type ChangeFreq string

const (
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
)

const (
	// NeutralPriority is used before any file with history has been seen.
	NeutralPriority = 0.5
	MinPriority     = 0.1
	MaxPriority     = 1.0
)

// Priority normalizes commitCount against the largest count seen so far,
// clamped to [MinPriority, MaxPriority].
func Priority(commitCount, maxCommits int) float64 {
	if maxCommits == 0 {
		return NeutralPriority
	}
	p := float64(commitCount) / float64(maxCommits)
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// ChangeFreqSince buckets the age of lastModified relative to now.
// Bucket upper bounds are inclusive.
func ChangeFreqSince(lastModified, now time.Time) ChangeFreq {
	days := now.Sub(lastModified).Hours() / 24
	switch {
	case days <= 7:
		return Daily
	case days <= 30:
		return Weekly
	case days <= 180:
		return Monthly
	default:
		return Yearly
	}
}

// ChangeFreqOf parses an RFC 3339 timestamp and buckets it. Unparseable input
// yields Monthly.
func ChangeFreqOf(lastmod string, now time.Time) ChangeFreq {
	t, err := time.Parse(time.RFC3339Nano, lastmod)
	if err != nil {
		return Monthly
	}
	return ChangeFreqSince(t, now)
}

// MaxTracker holds the running maximum commit count of a run. It is owned by
// a single goroutine.
type MaxTracker struct {
	max int
}

// Observe folds count into the maximum and returns the new maximum.
func (m *MaxTracker) Observe(count int) int {
	if count > m.max {
		m.max = count
	}
	return m.max
}

// Max returns the maximum observed so far.
func (m *MaxTracker) Max() int {
	return m.max
}
