package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qthlpy-collab/jp-immigration-monitor/internal/config"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dashboard"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/dataset"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/record"
	"github.com/qthlpy-collab/jp-immigration-monitor/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagData     string
	flagDebug    bool
	flagQuery    string
	flagCategory string
	flagMin      string

	flagCheckUpdate bool
)

var rootCmd = &cobra.Command{
	Use:   "jpmon",
	Short: "Japan immigration notice dashboard",
	Long: `jpmon shows a dataset of Japanese immigration notices as a filterable table.

Run without arguments for the interactive dashboard, or use render for a
one-shot table and serve for the web dashboard.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to config file")
	pf.StringVar(&flagData, "data", "", "dataset file or http(s) URL (overrides config)")
	pf.BoolVar(&flagDebug, "debug", false, "verbose development logging")
	pf.StringVar(&flagQuery, "q", "", "filter by text in title or source")
	pf.StringVar(&flagCategory, "cat", record.AllCategories, "filter by exact category")
	pf.StringVar(&flagMin, "min", "", "minimum confidence (0-100)")

	versionCmd.Flags().BoolVar(&flagCheckUpdate, "check", false, "check for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jpmon %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheckUpdate {
			return
		}
		if res := (update.Checker{}).Check(context.Background(), version); res != nil {
			fmt.Printf("A newer version is available: %s %s\n", res.LatestVersion, res.URL)
		} else {
			fmt.Println("No newer release found.")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// datasetSource picks the --data flag over the configured dataset.
func datasetSource(cfg *config.Config) string {
	if flagData != "" {
		return flagData
	}
	return cfg.Dataset
}

func newPipeline(cfg *config.Config, loader dataset.Loader) *dashboard.Pipeline {
	return dashboard.New(loader,
		dashboard.WithDelay(cfg.RefreshDelayDuration()),
		dashboard.WithLabel(cfg.Label()),
	)
}

func currentCriteria() record.Criteria {
	return record.NewCriteria(flagQuery, flagCategory, flagMin)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
