package cmd

import (
	"fmt"

	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Ask Gemini, grounded on Google Search, for recent findings about a planet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := findPlanet(ctx, args[0])
		if err != nil {
			return err
		}
		svc, closeSvc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer closeSvc()

		res, err := svc.Search(ctx, r)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if searchJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, res.Content)
		if len(res.Sources) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for _, s := range res.Sources {
				fmt.Fprintf(out, "- %s <%s>\n", s.Title, s.URL)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print as JSON")
}
