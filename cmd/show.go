package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/reference"
	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/spf13/cobra"
)

var showJSON bool

type planetView struct {
	Record    planet.Record        `json:"record"`
	Reference *reference.Reference `json:"reference"`
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one planet's properties and discovery reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := findPlanet(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		v := planetView{Record: r}
		if ref, ok := reference.Extract(r.ReferenceMarkup); ok {
			v.Reference = &ref
		}
		out := cmd.OutOrStdout()
		if showJSON {
			b, err := utils.PrettyJSON(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "%s\n", r.Name)
		fmt.Fprintf(out, "  Host star: %s\n", orNA(r.HostStar))
		fmt.Fprintf(out, "  Discovered: %s (%s)\n", orNA(r.YearDiscovered), orNA(r.Method))
		for _, p := range planet.Properties {
			val := p.Value(r)
			s := "N/A"
			if val != 0 {
				s = strconv.FormatFloat(val, 'f', -1, 64)
				if p.Unit != "" {
					s += " " + p.Unit
				}
			}
			fmt.Fprintf(out, "  %s: %s\n", p.Label, s)
		}
		if v.Reference != nil {
			fmt.Fprintf(out, "  Reference: %s <%s>\n", v.Reference.Title, v.Reference.URL)
		}
		return nil
	},
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print as JSON")
}
