package submodules

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"sitemapkit/internal/errors"
)

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("build commands use sh")
	}
}

func newRunner(t *testing.T, modules ...Module) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	for _, m := range modules {
		if err := os.MkdirAll(filepath.Join(dir, "external", m.Name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	var stdout, stderr bytes.Buffer
	return &Runner{
		ProjectDir: dir,
		Dir:        filepath.Join(dir, "external"),
		Modules:    modules,
		Stdout:     &stdout,
		Stderr:     &stderr,
	}, &stdout, &stderr
}

func TestMissing(t *testing.T) {
	r, _, _ := newRunner(t, Module{Name: "ultraviolet"})
	r.Modules = append(r.Modules, Module{Name: "epoxy"})

	missing := r.Missing()
	if len(missing) != 1 || missing[0] != "epoxy" {
		t.Errorf("Missing() = %v, want [epoxy]", missing)
	}
}

func TestEnsure_AllPresent(t *testing.T) {
	r, _, _ := newRunner(t, Module{Name: "bare-mux"})
	var sections []string
	r.Section = func(title string) { sections = append(sections, title) }

	// ProjectDir is not a git repository, so running git would fail.
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if len(sections) != 1 || sections[0] != "Checking git submodules" {
		t.Errorf("sections = %v", sections)
	}
}

func TestEnsure_GitFailure(t *testing.T) {
	r, _, _ := newRunner(t)
	r.Modules = []Module{{Name: "scramjet"}}

	err := r.Ensure(context.Background())
	if errors.CodeOf(err) != errors.SubmoduleFailed {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.SubmoduleFailed)
	}
}

func TestBuild_RunsInCheckoutWithRelease(t *testing.T) {
	skipOnWindows(t)
	r, stdout, stderr := newRunner(t, Module{Name: "epoxy", Command: `echo "$RELEASE:$(basename "$PWD")"; echo oops >&2`})

	if err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "1:epoxy") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.HasPrefix(stdout.String(), colorGreen) {
		t.Errorf("stdout not colored: %q", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr captured without debug: %q", stderr.String())
	}
}

func TestBuild_DebugStreamsStderr(t *testing.T) {
	skipOnWindows(t)
	r, _, stderr := newRunner(t, Module{Name: "wisp", Command: "echo oops >&2"})
	r.Debug = true

	if err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "oops") || !strings.HasPrefix(stderr.String(), colorYellow) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestBuild_StopsAtFirstFailure(t *testing.T) {
	skipOnWindows(t)
	r, stdout, _ := newRunner(t,
		Module{Name: "a", Command: "exit 3"},
		Module{Name: "b", Command: "echo built-b"},
	)

	err := r.Build(context.Background())
	if errors.CodeOf(err) != errors.SubmoduleFailed {
		t.Fatalf("err = %v, want SUBMODULE_FAILED", err)
	}
	if !strings.Contains(err.Error(), "Build failed for a") {
		t.Errorf("err = %v", err)
	}
	if strings.Contains(stdout.String(), "built-b") {
		t.Error("build continued after a failure")
	}
}

func TestBuild_SkipsEmptyCommand(t *testing.T) {
	skipOnWindows(t)
	r, stdout, _ := newRunner(t, Module{Name: "docs"}, Module{Name: "site", Command: "echo built"})
	var sections []string
	r.Section = func(title string) { sections = append(sections, title) }

	if err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Join(sections, ",") != "Building docs,Building site" {
		t.Errorf("sections = %v", sections)
	}
	if !strings.Contains(stdout.String(), "built") {
		t.Errorf("stdout = %q", stdout.String())
	}
}
