package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := dataset.New(datasetSource(cfg))

	return tui.Run(tui.RunOpts{
		Ctx:           ctx,
		Pipeline:      newPipeline(cfg, loader),
		Source:        dataset.Describe(loader),
		Query:         flagQuery,
		Category:      flagCategory,
		MinConfidence: flagMin,
	})
}
