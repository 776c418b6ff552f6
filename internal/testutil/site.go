package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteSite creates n recognized files under root: one index.html, then
// pages and images alternating across two subdirectories. It returns the
// relative paths written, in creation order.
func WriteSite(t *testing.T, root string, n int) []string {
	t.Helper()

	rels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var rel string
		switch {
		case i == 0:
			rel = "index.html"
		case i%2 == 0:
			rel = fmt.Sprintf("pages/page-%03d.html", i)
		default:
			rel = fmt.Sprintf("img/photo-%03d.webp", i)
		}
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(rel), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		rels = append(rels, rel)
	}
	return rels
}
