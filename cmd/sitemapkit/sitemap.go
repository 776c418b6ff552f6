package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sitemapRoot        string
	sitemapOutput      string
	sitemapBatchSize   int
	sitemapConcurrency int
	sitemapDryRun      bool
	sitemapJSON        bool
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Generate the sitemap base only",
	Long: `Walk the built site, enrich every page and asset with git history and
stream the records to the output file. Submodules are not touched.

Examples:
  sitemapkit sitemap                          # Uses root/output from config
  sitemapkit sitemap --root dist -o out.json  # Override paths
  sitemapkit sitemap --output sitemap.json.gz # Gzip-compressed output
  sitemapkit sitemap --dry-run --json         # Report only, no file written`,
	RunE: runSitemap,
}

func init() {
	sitemapCmd.Flags().StringVar(&sitemapRoot, "root", "", "Crawl root (default from config)")
	sitemapCmd.Flags().StringVarP(&sitemapOutput, "output", "o", "", "Output file (default from config)")
	sitemapCmd.Flags().IntVar(&sitemapBatchSize, "batch-size", 0, "Files per batch (default from config)")
	sitemapCmd.Flags().IntVar(&sitemapConcurrency, "concurrency", 0, "Concurrent history lookups (default from config)")
	sitemapCmd.Flags().BoolVar(&sitemapDryRun, "dry-run", false, "Collect records in memory without writing the output")
	sitemapCmd.Flags().BoolVar(&sitemapJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(sitemapCmd)
}

func runSitemap(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sitemapRoot != "" {
		cfg.Root = sitemapRoot
	}
	if sitemapOutput != "" {
		cfg.Output = sitemapOutput
	}
	if sitemapBatchSize > 0 {
		cfg.BatchSize = sitemapBatchSize
	}
	if sitemapConcurrency > 0 {
		cfg.Concurrency = sitemapConcurrency
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	report, err := generate(cmd.Context(), cfg, logger, sitemapDryRun)
	if err != nil {
		return err
	}

	if sitemapJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if report.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %s does not exist\n", report.Root)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records (%d degraded) in %s\n",
		report.Written, report.Degraded, formatElapsed(start))
	return nil
}
