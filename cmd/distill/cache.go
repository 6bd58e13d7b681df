package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yhilem/distill/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count, hit counters, and size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache resolves the cache database: --cache-db wins, otherwise the
// default under the user cache directory.
func openCache() (*cache.SQLite, error) {
	path := flagCacheDB
	if path == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache directory: %w", err)
		}
		path = filepath.Join(base, "distill", "cache.db")
	}
	return cache.NewSQLite(path)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "entries:    %d\n", stats.Entries)
	fmt.Fprintf(os.Stdout, "size:       %d bytes\n", stats.SizeBytes)
	fmt.Fprintf(os.Stdout, "hits:       %d\n", stats.Hits)
	fmt.Fprintf(os.Stdout, "misses:     %d\n", stats.Misses)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "cache cleared")
	return nil
}
