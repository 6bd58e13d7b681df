package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagConcurrency int
	flagItemTimeout time.Duration
	flagOutputDir   string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file...>",
	Short: "Extract many documents concurrently",
	Long: `Batch extracts every given file through a bounded worker pool and
writes one JSON result per input. A failed or timed-out document is
reported and skipped; the rest of the batch is unaffected.

Examples:
  distill batch docs/*.pdf --output-dir out/
  distill batch *.docx --concurrency 4 --item-timeout 30s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Concurrent extractions (default 8)")
	batchCmd.Flags().DurationVar(&flagItemTimeout, "item-timeout", 0, "Per-document timeout (0 disables)")
	batchCmd.Flags().StringVar(&flagOutputDir, "output-dir", ".", "Directory for per-document JSON results")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagConcurrency > 0 {
		cfg.MaxConcurrency = flagConcurrency
	}
	if flagItemTimeout > 0 {
		cfg.ItemTimeout = flagItemTimeout
	}

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Cache().Close()

	var errCount int
	done := 0
	for item := range p.BatchExtractFilesAsync(context.Background(), args, cfg) {
		done++
		if item.Err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] ✗ %s: %v\n", done, len(args), item.Path, item.Err)
			errCount++
			continue
		}

		name := filepath.Base(item.Path) + ".json"
		outPath := filepath.Join(flagOutputDir, name)
		data, err := json.MarshalIndent(item.Result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] ✗ %s: encoding result: %v\n", done, len(args), item.Path, err)
			errCount++
			continue
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] ✗ %s: %v\n", done, len(args), item.Path, err)
			errCount++
			continue
		}
		fmt.Fprintf(os.Stdout, "[%d/%d] ✓ %s -> %s\n", done, len(args), item.Path, outPath)
	}

	if errCount > 0 {
		return fmt.Errorf("%d/%d documents failed", errCount, len(args))
	}
	return nil
}
