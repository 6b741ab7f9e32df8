package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/feed"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch all enabled sources into the item store",
	Long: `Fetch every enabled source, one at a time with the configured rate limit,
and store new items. Sources that fail are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(flagDebug)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		sources := cfg.EnabledSources()
		if len(sources) == 0 {
			fmt.Println("No enabled sources.")
			return nil
		}

		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bar := pb.New(len(sources)).SetWriter(cmd.ErrOrStderr()).Start()
		res, err := feed.Collect(ctx, db, sources, feed.FetchOpts{
			RateLimit: cfg.RateLimitDuration(),
			OnSource: func(s config.Source, n int, err error) {
				if err != nil {
					logger.Warn("source skipped", zap.String("source", s.ID), zap.Error(err))
				} else {
					logger.Debug("source fetched", zap.String("source", s.ID), zap.Int("items", n))
				}
				bar.Increment()
			},
		})
		bar.Finish()
		if err != nil {
			return err
		}

		// Auto-prune old items after a scrape
		pruned, err := db.Prune(cfg.RetentionDuration())
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		fmt.Printf("Fetched %d item(s) from %d source(s): %d new", res.Fetched, len(sources), res.Inserted)
		if pruned > 0 {
			fmt.Printf(", %d pruned", pruned)
		}
		fmt.Println(".")
		if len(res.Errors) > 0 {
			fmt.Printf("%d source(s) failed.\n", len(res.Errors))
		}
		return nil
	},
}
