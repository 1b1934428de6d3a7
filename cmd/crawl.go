// Package cmd defines and implements the CLI commands for the site-crawler executable.
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl in the
// foreground and logs every page it fetches.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawls one site and exits",
		Long: `Crawls the site of the seed URL (argument or --seed / crawler.seed_url)
until the page budget, depth limit or deadline is reached. SIGINT or SIGTERM
stops the crawl early and still prints the summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCommand,
	}
	cmd.Flags().String("seed", "", "seed URL")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	log := appInstance.Logger()

	cc := appInstance.Config().Crawl()
	seed := cc.SeedURL
	if len(args) == 1 {
		seed = args[0]
	}
	if seed == "" {
		return errors.New("a seed URL is required")
	}
	cc = cc.WithSeed(seed)

	coord, err := appInstance.NewCoordinator(cc)
	if err != nil {
		return err
	}
	coord.SetResultListener(crawler.ListenerFunc(func(r crawler.PageResult) {
		log.Info("page crawled",
			zap.String("url", r.URL),
			zap.Int("depth", r.Depth),
			zap.String("title", r.Title),
			zap.Int("links", r.Links),
		)
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := coord.Start(ctx, cc.SeedURL)
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"crawled %s: fetched=%d failed=%d discovered=%d remaining=%d reason=%s duration=%s\n",
		summary.SeedURL, summary.Fetched, summary.Failed, summary.Admitted,
		summary.Remaining, summary.Reason, summary.Duration,
	)
	return nil
}
