package cmd

import (
	"fmt"

	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/spf13/cobra"
)

var narrateSpeak string

var narrateCmd = &cobra.Command{
	Use:   "narrate <name>",
	Short: "Write a short narrative about a planet, optionally read aloud to a WAV file",
	Args:  cobra.ExactArgs(1),
	Example: `  exodash narrate "TOI-700 d"
  exodash narrate "TOI-700 d" --speak toi-700d.wav`,
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

		text, err := svc.Narrative(ctx, r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)

		if narrateSpeak == "" {
			return nil
		}
		audio, err := svc.Speech(ctx, text)
		if err != nil {
			return err
		}
		wav, err := audio.WAV()
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(narrateSpeak, wav); err != nil {
			return err
		}
		success(cmd.ErrOrStderr(), "Wrote %s (%.1fs)", narrateSpeak, audio.Duration())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(narrateCmd)
	narrateCmd.Flags().StringVar(&narrateSpeak, "speak", "", "also synthesize speech into this WAV file")
}
