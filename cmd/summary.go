package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/exodash/internal/analysis"
	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	summaryFormat string
	summaryOutput string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print dataset metrics: totals, discoveries per year, property statistics",
	Example: `  exodash summary
  exodash summary --format json -o summary.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := loadDataset(cmd.Context())
		s := analysis.Summarize(ds.Records())
		s.Source = ds.Source()

		var out []byte
		switch strings.ToLower(summaryFormat) {
		case "md", "markdown", "":
			out = []byte(s.Markdown())
		case "json":
			b, err := utils.PrettyJSON(s)
			if err != nil {
				return err
			}
			out = append(b, '\n')
		case "yaml", "yml":
			b, err := yaml.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal yaml: %w", err)
			}
			out = b
		case "toml":
			b, err := toml.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal toml: %w", err)
			}
			out = b
		default:
			return fmt.Errorf("invalid --format: %s (use md, json, yaml or toml)", summaryFormat)
		}
		return emit(cmd, out, summaryOutput)
	},
}

// emit writes b to path, or to stdout when path is empty or "-".
func emit(cmd *cobra.Command, b []byte, path string) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	success(cmd.ErrOrStderr(), "Wrote %s", path)
	return nil
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&summaryFormat, "format", "f", "md", "output format: md|json|yaml|toml")
	summaryCmd.Flags().StringVarP(&summaryOutput, "output", "o", "", "write to file instead of stdout")
}
