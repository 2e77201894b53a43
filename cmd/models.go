package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect or extend the Gemini model catalog",
	Example: `  exodash models show
  exodash models show --json
  exodash models sync --file ./models.json`,
}

var modelsShowJSON bool

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the model catalog and the models configured per feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		out := cmd.OutOrStdout()
		if modelsShowJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cat)
		}
		t := newTable(out, "Model", "Output", "Grounding", "Notes")
		for _, m := range cat {
			t.AppendRow(table.Row{m.Name, m.Output, m.Grounding, m.Notes})
		}
		t.Render()
		if cfg != nil {
			fmt.Fprintf(out, "\nConfigured: text=%s image=%s tts=%s voice=%s\n",
				cfg.TextModel, cfg.ImageModel, cfg.TTSModel, cfg.Voice)
		}
		return nil
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge model entries from a JSON file into the catalog for this run",
	Long: `Merge model entries from a JSON object of name -> {output, grounding, notes}.
To apply a catalog on every run, set models_catalog in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d models from file\n", len(m))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsShowCmd.Flags().BoolVar(&modelsShowJSON, "json", false, "print as JSON")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
}
