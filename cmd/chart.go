package cmd

import (
	"bytes"

	"github.com/KaramelBytes/exodash/internal/chart"
	"github.com/spf13/cobra"
)

var (
	chartOutput string
	chartPlanet string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the dashboard charts to a standalone HTML file",
	Example: `  exodash chart -o dashboard.html
  exodash chart --planet "TOI-700 d" -o toi-700d.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ds := loadDataset(ctx)
		var buf bytes.Buffer
		if chartPlanet != "" {
			r, err := findPlanetIn(ds, chartPlanet)
			if err != nil {
				return err
			}
			if err := chart.PlanetPage(&buf, ds.Records(), r); err != nil {
				return err
			}
		} else if err := chart.Dashboard(&buf, ds.Records(), nil); err != nil {
			return err
		}
		return emit(cmd, buf.Bytes(), chartOutput)
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "dashboard.html", "output HTML file (- for stdout)")
	chartCmd.Flags().StringVar(&chartPlanet, "planet", "", "render the page for one planet")
}
