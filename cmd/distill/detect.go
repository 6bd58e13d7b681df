package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yhilem/distill/mimetype"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file...>",
	Short: "Resolve the media type of files without extracting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var errCount int
		for _, path := range args {
			mime, err := mimetype.DetectFromPath(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				errCount++
				continue
			}
			fmt.Fprintf(os.Stdout, "%s: %s\n", path, mime)
		}
		if errCount > 0 {
			return fmt.Errorf("%d/%d files failed", errCount, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
