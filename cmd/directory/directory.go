// Package directory implements the batch directory analysis command.
package directory

import (
	"github.com/spf13/cobra"

	"github.com/fieldcut/fieldcut/internal/analysis"
	"github.com/fieldcut/fieldcut/internal/conf"
)

// Command creates the directory command for analyzing all audio files in a
// directory.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory [path]",
		Short: "Analyze all audio files in a directory",
		Long:  `Analyze every WAV and FLAC file under the given directory with a bounded worker pool. Interrupting the run skips files that have not started; files already being analyzed finish normally.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			_, err := analysis.DirectoryAnalysis(cmd.Context(), settings)
			return err
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Output.Dir, "output", "o", settings.Output.Dir, "Path to output directory")
	cmd.Flags().BoolVarP(&settings.Input.Recursive, "recursive", "r", false, "Scan subdirectories recursively")
	cmd.Flags().IntVarP(&settings.Output.MaxWorkers, "workers", "w", settings.Output.MaxWorkers, "Number of analysis workers (0 = number of CPUs, clamped to 1..8)")
}
