package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/cache"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
)

var (
	flagExportOut   string
	flagExportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored items as a dashboard dataset",
	Long: `Write the most recently fetched items from the store as a JSON dataset the
dashboard can load with --data or the dataset config key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		items, err := db.Search(cache.SearchOpts{Limit: flagExportLimit})
		if err != nil {
			return fmt.Errorf("reading items: %w", err)
		}
		records := itemsToRecords(items, sourceNames(cfg.Sources))

		var w io.Writer = cmd.OutOrStdout()
		if flagExportOut != "" {
			f, err := os.Create(flagExportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", flagExportOut, err)
			}
			defer f.Close()
			w = f
		}

		if err := dataset.Encode(w, records); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}
		if flagExportOut != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d record(s) to %s.\n", len(records), flagExportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&flagExportLimit, "limit", 1000, "maximum number of items")
}

func sourceNames(sources []config.Source) map[string]string {
	names := make(map[string]string, len(sources))
	for _, s := range sources {
		names[s.ID] = s.Label()
	}
	return names
}

func itemsToRecords(items []cache.Item, names map[string]string) []record.Record {
	records := make([]record.Record, 0, len(items))
	for _, it := range items {
		records = append(records, it.Record(names[it.SourceID]))
	}
	return records
}
