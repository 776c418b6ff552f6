package scoring

import (
	"testing"
	"time"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		count, max int
		want       float64
	}{
		{0, 0, 0.5},
		{7, 0, 0.5},
		{5, 10, 0.5},
		{10, 10, 1.0},
		{0, 10, 0.1},
		{1, 100, 0.1},
		{3, 4, 0.75},
		{12, 10, 1.0},
	}

	for _, tt := range tests {
		if got := Priority(tt.count, tt.max); got != tt.want {
			t.Errorf("Priority(%d, %d) = %v, want %v", tt.count, tt.max, got, tt.want)
		}
	}
}

func TestChangeFreqOf(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ago := func(d float64) string {
		return now.Add(-time.Duration(d * 24 * float64(time.Hour))).Format("2006-01-02T15:04:05.000Z07:00")
	}

	tests := []struct {
		name    string
		lastmod string
		want    ChangeFreq
	}{
		{"3 days", ago(3), Daily},
		{"7 days", ago(7), Daily},
		{"7.5 days", ago(7.5), Weekly},
		{"20 days", ago(20), Weekly},
		{"30 days", ago(30), Weekly},
		{"100 days", ago(100), Monthly},
		{"180 days", ago(180), Monthly},
		{"181 days", ago(181), Yearly},
		{"400 days", ago(400), Yearly},
		{"future", ago(-2), Daily},
		{"unparseable", "not a date", Monthly},
		{"empty", "", Monthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChangeFreqOf(tt.lastmod, now); got != tt.want {
				t.Errorf("ChangeFreqOf(%q) = %s, want %s", tt.lastmod, got, tt.want)
			}
		})
	}
}

func TestMaxTracker(t *testing.T) {
	var m MaxTracker
	if m.Max() != 0 {
		t.Errorf("zero value Max = %d", m.Max())
	}

	for _, tt := range []struct{ in, want int }{{3, 3}, {1, 3}, {9, 9}, {0, 9}} {
		if got := m.Observe(tt.in); got != tt.want {
			t.Errorf("Observe(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
