package main

import (
	"time"

	"github.com/spf13/cobra"

	"sitemapkit/internal/submodules"
)

var (
	skipSubmodules bool
	envMode        string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build submodules, then the sitemap base",
	Long: `Fetch and build the external submodules, then generate the sitemap base.

Submodules come from submodules.modules in sitemapkit.yaml; with none
configured the submodule step has nothing to do. sitemapkit.example.yaml
lists the standard set with their build commands.

Examples:
  sitemapkit build                     # Full build
  sitemapkit build --skip-submodules   # Sitemap only (same as SKIP_SUBMODULES=1)
  sitemapkit build --env=debug         # Also stream submodule stderr`,
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&skipSubmodules, "skip-submodules", false, "Skip building external submodules (env SKIP_SUBMODULES=1)")
	cmd.Flags().StringVar(&envMode, "env", "", "Environment mode (e.g. --env=debug)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()
	out := cmd.ErrOrStderr()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, out)

	logSection(out, startBanner(start))

	if skipSubmodules || cfg.Submodules.Skip {
		logger.Info("Skipping submodule builds due to SKIP_SUBMODULES flag")
	} else if len(cfg.Submodules.Modules) == 0 {
		logger.Warn("No submodules configured, skipping submodule builds", "key", "submodules.modules")
	} else {
		runner := &submodules.Runner{
			ProjectDir: cfg.ProjectDir,
			Dir:        cfg.SubmodulesPath(),
			Modules:    modulesFromConfig(cfg.Submodules.Modules),
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
			Debug:      envMode == "debug",
			Section:    func(title string) { logSection(out, title) },
			Logger:     logger,
		}
		if err := runner.Ensure(cmd.Context()); err != nil {
			return err
		}
		if err := runner.Build(cmd.Context()); err != nil {
			return err
		}
	}

	logSection(out, "Generating sitemap base")
	if _, err := generate(cmd.Context(), cfg, logger, false); err != nil {
		return err
	}

	logSection(out, "Done in "+formatElapsed(start))
	return nil
}
