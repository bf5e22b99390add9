// Package cmd assembles the fieldcut command line interface.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldcut/fieldcut/cmd/directory"
	"github.com/fieldcut/fieldcut/cmd/file"
	"github.com/fieldcut/fieldcut/cmd/validate"
	"github.com/fieldcut/fieldcut/internal/buildinfo"
	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/pipeline"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fieldcut",
		Short:   "Sample detection and segment extraction for field recordings",
		Version: buildinfo.String(),
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	// With --debug, pipeline counters are collected during the run and
	// dumped to the log afterwards.
	var metrics *pipeline.Metrics
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if !settings.Debug {
			return
		}
		m, err := pipeline.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			slog.Warn("pipeline metrics disabled", "error", err)
			return
		}
		pipeline.SetMetrics(m)
		metrics = m
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if metrics != nil {
			metrics.LogSummary(slog.Default())
		}
	}

	rootCmd.AddCommand(
		file.Command(settings),
		directory.Command(settings),
		validate.Command(settings),
	)

	return rootCmd
}

// setupFlags defines the global flags shared by every subcommand. Defaults
// come from viper so the config file and environment stay authoritative when
// a flag is not given.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVarP(&settings.Detection.Mode, "mode", "m", viper.GetString("detection.mode"), "Detection mode: auto, voice, transient, nonsilence, spectral")
	flags.StringVarP(&settings.Detection.Threshold, "threshold", "t", viper.GetString("detection.threshold"), "Detection threshold percentile (0-100) or 'auto'")
	flags.Float64Var(&settings.Detection.MinDurMs, "min-dur", viper.GetFloat64("detection.mindurms"), "Minimum segment duration in milliseconds")
	flags.Float64Var(&settings.Detection.MaxDurMs, "max-dur", viper.GetFloat64("detection.maxdurms"), "Maximum segment duration in milliseconds")
	flags.Float64Var(&settings.Detection.MergeGapMs, "merge-gap", viper.GetFloat64("detection.mergegapms"), "Merge candidates separated by at most this gap in milliseconds")
	flags.Float64Var(&settings.Detection.MinGapMs, "min-gap", viper.GetFloat64("detection.mingapms"), "Drop segments closer than this gap to the previous kept one")
	flags.IntVar(&settings.Detection.MaxSamples, "max-samples", viper.GetInt("detection.maxsamples"), "Maximum number of segments per file")
	flags.IntVar(&settings.Preprocess.AnalysisSR, "analysis-sr", viper.GetInt("preprocess.analysissr"), "Analysis sample rate in Hz")

	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
