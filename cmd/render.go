package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/termview"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the filtered dataset as a table",
	Long: `Load the dataset once, apply --q, --cat and --min and print the matching
rows followed by the status line. Exits non-zero if the dataset cannot be loaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		p := newPipeline(cfg, dataset.New(datasetSource(cfg)))
		view := termview.New(cmd.OutOrStdout())

		loadErr := p.LoadInto(ctx, view, currentCriteria())
		if err := view.Flush(); err != nil {
			return err
		}
		return loadErr
	},
}
