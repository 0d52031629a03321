package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the analysis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit statistics and size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats := s.cache.Stats()
		out := cmd.OutOrStdout()
		if !stats.Enabled {
			fmt.Fprintln(out, "Cache: disabled")
			return nil
		}
		fmt.Fprintf(out, "Entries:  %d\n", stats.Entries)
		fmt.Fprintf(out, "Size:     %d bytes\n", stats.SizeBytes)
		fmt.Fprintf(out, "Hits:     %d\n", stats.Hits)
		fmt.Fprintf(out, "Misses:   %d\n", stats.Misses)
		fmt.Fprintf(out, "Hit rate: %.1f%%\n", stats.HitRate)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.cache.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove expired cached entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		removed := s.cache.CleanExpired()
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}
