package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/app"
	"github.com/JakeFAU/site-crawler/internal/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(flags *pflag.FlagSet) (*app.App, error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site-crawler",
		Short: "A bounded, single-site concurrent web crawler.",
		Long: `site-crawler walks the links of one site from a seed URL, staying on
the seed's domain, honoring robots.txt and stopping at a page budget, a depth
limit, a deadline or an operator request.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Builds the application after flags are parsed and before RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/site-crawler, $HOME/.site-crawler)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("dev", true, "use the development logger")
	flags.Int("max-pages", 0, "maximum number of pages to fetch")
	flags.Int("max-depth", 0, "maximum link depth from the seed")
	flags.Int("workers", 0, "number of concurrent workers")
	flags.Duration("crawl-delay", 0, "pause after each fetch")
	flags.Duration("deadline", 0, "wall-clock limit for a crawl")
	flags.Bool("respect-robots", true, "honor robots.txt")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func logger(ctx context.Context) *zap.Logger {
	if a, err := resolveApp(ctx); err == nil {
		return a.Logger()
	}
	return zap.NewNop()
}
