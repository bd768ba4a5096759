// ABOUTME: clear-cache command
// ABOUTME: Removes sources cached by the fetcher
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCacheCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove fetched sources from the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Fetch.CacheDir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache directory configured")
				return nil
			}

			fetcher, err := newFetcher(cfg)
			if err != nil {
				return err
			}
			if err := fetcher.Cleanup(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.Fetch.CacheDir)
			return nil
		},
	}
}
