// Command distill extracts text and structure from documents on the
// command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yhilem/distill"
	"github.com/yhilem/distill/cache"
)

var (
	flagConfig  string
	flagCacheDB string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Extract text, metadata, and structure from documents",
	Long: `Distill extracts text, tables, metadata, chunks, and entities from
PDFs, Office documents, HTML, email, images, and plain text.

Usage:
  distill extract report.pdf --chunk --keywords
  distill batch docs/*.docx --output-dir out/
  distill cache stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (YAML or JSON; discovered from cwd when empty)")
	rootCmd.PersistentFlags().StringVar(&flagCacheDB, "cache-db", "", "Path to a SQLite cache database (in-memory cache when empty)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig resolves the effective config: --config wins, then a
// discovered distill.yaml, then defaults.
func loadConfig() (*distill.Config, error) {
	if flagConfig != "" {
		return distill.LoadConfig(flagConfig)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return distill.DefaultConfig(), nil
	}
	cfg, err := distill.DiscoverConfig(cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = distill.DefaultConfig()
	}
	return cfg, nil
}

// newPipeline builds a pipeline with the cache selected by --cache-db.
func newPipeline() (*distill.Pipeline, error) {
	var opts []distill.Option
	if flagCacheDB != "" {
		c, err := cache.NewSQLite(flagCacheDB)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, distill.WithCache(c))
	}
	opts = append(opts, distill.WithLogger(slog.Default()))
	return distill.New(opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
