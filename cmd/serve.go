package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/feed"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/web"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web dashboard and JSON API",
	Long: `Serve the dashboard pages and the JSON API over HTTP.

Scraped sources are collected into the item store on the scrape_schedule
cron spec from config, and once at startup when the store is stale.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(flagDebug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := dataset.New(datasetSource(cfg))
	p := newPipeline(cfg, loader)
	if err := p.Load(ctx); err != nil {
		// The pages report the empty dataset; a refresh can recover it.
		logger.Warn("initial dataset load failed", zap.String("source", dataset.Describe(loader)), zap.Error(err))
	} else {
		logger.Info("dataset loaded", zap.String("source", dataset.Describe(loader)), zap.Int("records", p.Len()))
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer db.Close()

	srv, err := web.New(web.Options{
		Pipeline:    p,
		DB:          db,
		Sources:     cfg.EnabledSources(),
		FetchOpts:   feed.FetchOpts{RateLimit: cfg.RateLimitDuration()},
		Logger:      logger,
		DatasetName: dataset.Describe(loader),
	})
	if err != nil {
		return err
	}

	scrape := func() {
		if _, err := srv.Scrape(ctx); err != nil {
			return
		}
		if n, err := db.Prune(cfg.RetentionDuration()); err != nil {
			logger.Warn("prune failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned old items", zap.Int64("deleted", n))
		}
	}

	c := cron.New()
	if spec := strings.TrimSpace(cfg.ScrapeSchedule); spec != "" {
		if _, err := c.AddFunc(spec, scrape); err != nil {
			return fmt.Errorf("invalid scrape_schedule %q: %w", spec, err)
		}
		logger.Info("scrape scheduled", zap.String("schedule", spec))
	}
	c.Start()
	defer c.Stop()

	if len(cfg.EnabledSources()) > 0 && db.NeedsRefresh(cfg.RefreshDuration()) {
		go scrape()
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}

	logger.Info("shutting down")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
