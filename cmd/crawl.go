// Package cmd defines the CLI commands for the jobscout executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Scrape every results page and export the jobs",
		Long: `Loads the search results at --base-url, discovers the page count, and
scrapes each job detail page. Interrupting the run (Ctrl-C) stops between
items and still exports what was collected.`,
		RunE: runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.String("base-url", "", "first results page to crawl")
	flags.Int("max-pages", 0, "stop after this many pages (0 = all)")
	flags.String("output", "", "CSV destination: local path or gs://bucket/object")
	flags.String("engine", "", "browser engine: chromedp or static")
	flags.String("run-id", "", "UUID for this run (generated when empty)")
	for key, name := range map[string]string{
		"crawl.base_url":  "base-url",
		"crawl.max_pages": "max-pages",
		"output.path":     "output",
		"browser.engine":  "engine",
		"crawl.run_id":    "run-id",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	// Closed here rather than in a post-run hook, which cobra skips on error.
	defer appInstance.Close(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := appInstance.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}
	if err != nil {
		appInstance.Logger().Warn("crawl interrupted; partial results exported", zap.String("run_id", summary.RunID))
	}

	out := summary.Output
	if out == "" {
		out = "(nothing written)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d jobs scraped, %d failed, %d/%d pages -> %s\n",
		summary.RunID, summary.ItemsScraped, summary.ItemsFailed, summary.PagesProcessed, summary.PagesTotal, out)
	return nil
}
