package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sitemapkit/internal/config"
	"sitemapkit/internal/errors"
	"sitemapkit/internal/slogutil"
	"sitemapkit/internal/version"
)

var (
	configFile string
	projectDir string
	verbosity  int
	quiet      bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "sitemapkit",
	Short: "Build a git-aware sitemap base for a static site",
	Long: `sitemapkit builds the external submodules of a static site, then walks the
built output and writes .sitemap-base.json: one record per page, image and video
with its last change time, commit count, priority and change frequency taken
from git history.

Running sitemapkit without a subcommand is the same as 'sitemapkit build'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

func init() {
	rootCmd.SetVersionTemplate("sitemapkit version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: sitemapkit.{yaml,json,toml} in the project dir)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: human or json (default from config)")
	addBuildFlags(rootCmd)
}

// loadConfig resolves configuration for the selected project directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(projectDir, configFile)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot load configuration", err)
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// newLogger builds the command logger from config and the verbosity flags.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if l, ok := slogutil.LevelFromVerbosity(verbosity, quiet); ok {
		level = l
	}
	return slogutil.New(w, cfg.Logging.Format, level)
}

// logSection prints a banner framed by dashes at least as wide as the title.
func logSection(w io.Writer, title string) {
	if quiet {
		return
	}
	width := len(title)
	if width < 10 {
		width = 10
	}
	bar := strings.Repeat("-", width)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", bar, title, bar)
}

func startBanner(now time.Time) string {
	return fmt.Sprintf("Build start (%s) on %s %s", now.Format("2006-01-02 15:04:05"), runtime.GOOS, runtime.Version())
}
