package cmd

import (
	"fmt"

	"github.com/KaramelBytes/exodash/internal/analysis"
	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listQuery string
	listLimit int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List planets, optionally filtered by name or host star",
	Example: `  exodash list
  exodash list -q toi-700
  exodash list -q kepler --limit 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := loadDataset(cmd.Context())
		recs := planet.Filter(ds.Records(), listQuery)
		if listLimit > 0 && listLimit < len(recs) {
			recs = recs[:listLimit]
		}
		out := cmd.OutOrStdout()
		if listJSON {
			b, err := utils.PrettyJSON(recs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(recs) == 0 {
			fmt.Fprintln(out, "(no planets)")
			return nil
		}
		t := newTable(out, "Name", "Host", "Year", "Period (d)", "Radius (R⊕)")
		for _, r := range recs {
			t.AppendRow(table.Row{r.Name, r.HostStar, analysis.FormatYear(r.Year()), num(r.OrbitalPeriod), num(r.Radius)})
		}
		t.Render()
		return nil
	},
}

// num renders an unknown (zero) measurement as a dash.
func num(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3g", v)
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "case-insensitive substring of planet or host name")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum rows (0 = all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")
}
