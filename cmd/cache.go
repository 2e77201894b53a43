package cmd

import (
	"fmt"

	"github.com/KaramelBytes/exodash/internal/cache"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge cached AI artifacts",
}

func withStore(cmd *cobra.Command, fn func(*cache.Store) error) error {
	if err := requireConfig(); err != nil {
		return err
	}
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache disabled (set cache_path)")
		return nil
	}
	defer st.Close()
	return fn(st)
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *cache.Store) error {
			entries, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "(empty)")
				return nil
			}
			t := newTable(out, "Planet", "Feature", "Variant", "Size", "Stored", "Created")
			var size, stored uint64
			for _, e := range entries {
				t.AppendRow(table.Row{e.Planet, e.Feature, orNA(e.Variant),
					humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Stored)), humanize.Time(e.CreatedAt)})
				size += uint64(e.Size)
				stored += uint64(e.Stored)
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d entries", len(entries)), "", "",
				humanize.Bytes(size), humanize.Bytes(stored), ""})
			t.Render()
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [planet]",
	Short: "Delete cached artifacts for one planet, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return withStore(cmd, func(st *cache.Store) error {
			n, err := st.Purge(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d entries\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
