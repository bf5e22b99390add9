// Package file implements the single-file analysis command.
package file

import (
	"github.com/spf13/cobra"

	"github.com/fieldcut/fieldcut/internal/analysis"
	"github.com/fieldcut/fieldcut/internal/conf"
)

// Command creates the file command for analyzing a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Analyze an audio file",
		Long:  `Analyze a single WAV or FLAC file and write the detected segments as CSV timestamps, an Audacity label track, REAPER regions and a project document.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			segments, err := analysis.FileAnalysis(cmd.Context(), settings)
			if err != nil {
				return err
			}
			return analysis.WriteSummary(cmd.OutOrStdout(), segments, settings.Output.Format)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Output.Dir, "output", "o", settings.Output.Dir, "Path to output directory")
	cmd.Flags().StringVar(&settings.Output.Format, "format", settings.Output.Format, "Console summary format: table or csv")
}
