package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetloader/internal/paths"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Inspect and maintain the integrity hash cache",
	Long: `The integrity cache maps absolute file paths to their SRI hash, the file
modification time it was computed for and when it was stored. Entries are
ignored once the file changes or the TTL elapses.`,
}

var integrityGetCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print the cached hash of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		value, ok := a.storage.Get(paths.Canonical(args[0]))
		if !ok {
			return fmt.Errorf("no valid integrity entry for %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var integrityComputeCmd = &cobra.Command{
	Use:   "compute PATH",
	Short: "Print the hash of a file, computing and caching it when needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		value := a.provider.Integrity(cmd.Context(), paths.Canonical(args[0]))
		if value == "" {
			return fmt.Errorf("cannot hash %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var integrityDeleteCmd = &cobra.Command{
	Use:   "delete PATH",
	Short: "Remove the cached hash of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		a.storage.Delete(paths.Canonical(args[0]))
		return nil
	},
}

var integrityClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		a.storage.Clear()
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", a.storage.Path())
		return nil
	},
}

var integrityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached hashes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		entries := a.storage.Entries()
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tINTEGRITY\tMTIME\tSTORED")
		for _, key := range keys {
			entry := entries[key]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", key, entry.Integrity, entry.Mtime,
				time.Unix(entry.StoredAt, 0).Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(integrityGetCmd, integrityComputeCmd, integrityDeleteCmd, integrityClearCmd, integrityListCmd)
}
