// Package sitemap writes enriched sitemap records as a streamed JSON array.
package sitemap

import (
	"time"

	"sitemapkit/internal/scoring"
)

// TimestampLayout is the lastmod format: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one sitemap entry. Field names are consumed by the sitemap renderer.
type Record struct {
	Loc         string             `json:"loc"`
	Lastmod     string             `json:"lastmod"`
	Ext         string             `json:"ext"`
	CommitCount int                `json:"commitCount"`
	Priority    float64            `json:"priority"`
	Changefreq  scoring.ChangeFreq `json:"changefreq"`
}

// FormatTimestamp renders t as a lastmod value.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Sink receives records one at a time.
type Sink interface {
	// Write appends one record. Writing after End fails with WRITER_CLOSED.
	Write(rec Record) error
	// End finalizes the output and returns the number of records written.
	End() (int, error)
	// Abort releases resources without producing output. It is a no-op after End.
	Abort() error
}
