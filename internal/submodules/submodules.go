// Package submodules fetches and builds the external projects whose output
// lands in the site before it is crawled.
package submodules

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"sitemapkit/internal/errors"
	"sitemapkit/internal/slogutil"
)

const (
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// Module is one external project and the shell command that builds it.
type Module struct {
	Name    string
	Command string
}

// Runner ensures and builds a list of modules under Dir.
type Runner struct {
	// ProjectDir is where `git submodule update` runs.
	ProjectDir string
	// Dir holds one checkout per module name.
	Dir     string
	Modules []Module

	// Stdout receives build output. Stderr receives it only when Debug is set.
	Stdout io.Writer
	Stderr io.Writer
	Debug  bool

	// Section, when set, is called with a banner title before each step.
	Section func(title string)
	Logger  *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	return slogutil.OrDiscard(r.Logger)
}

func (r *Runner) section(title string) {
	if r.Section != nil {
		r.Section(title)
	}
}

// Missing returns the names of modules whose checkout directory is absent.
func (r *Runner) Missing() []string {
	var missing []string
	for _, m := range r.Modules {
		if _, err := os.Stat(filepath.Join(r.Dir, m.Name)); err != nil {
			missing = append(missing, m.Name)
		}
	}
	return missing
}

// Ensure initializes git submodules when any configured checkout is missing.
func (r *Runner) Ensure(ctx context.Context) error {
	r.section("Checking git submodules")

	missing := r.Missing()
	if len(missing) == 0 {
		r.logger().Info("All submodules exist, continuing...")
		return nil
	}

	r.logger().Info("Not all submodules found, installing...", "missing", missing)
	cmd := exec.CommandContext(ctx, "git", "submodule", "update", "--init", "--recursive")
	cmd.Dir = r.ProjectDir
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()
	if err := cmd.Run(); err != nil {
		return errors.New(errors.SubmoduleFailed, "git submodule update failed", err)
	}
	return nil
}

// Build runs each module's command in its checkout with RELEASE=1 set.
// Modules without a command are skipped with a warning. The first failure
// stops the build.
func (r *Runner) Build(ctx context.Context) error {
	for _, m := range r.Modules {
		r.section("Building " + m.Name)
		if m.Command == "" {
			r.logger().Warn(fmt.Sprintf("No build command found for %s; skipping.", m.Name))
			continue
		}

		cmd := shellCommand(ctx, m.Command)
		cmd.Dir = filepath.Join(r.Dir, m.Name)
		cmd.Env = append(os.Environ(), "RELEASE=1")
		cmd.Stdout = &colorWriter{w: r.stdout(), color: colorGreen}
		if r.Debug {
			cmd.Stderr = &colorWriter{w: r.stderr(), color: colorYellow}
		}

		r.logger().Debug("Running build command", "module", m.Name, "dir", cmd.Dir)
		if err := cmd.Run(); err != nil {
			return errors.New(
				errors.SubmoduleFailed,
				fmt.Sprintf("Build failed for %s", m.Name),
				err,
			).WithDetails(map[string]string{"module": m.Name, "command": m.Command})
		}
	}
	return nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return io.Discard
	}
	return r.Stderr
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// colorWriter wraps each chunk of child output in an ANSI color.
type colorWriter struct {
	w     io.Writer
	color string
}

func (c *colorWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(c.w, c.color); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	_, err = io.WriteString(c.w, colorReset)
	return n, err
}
