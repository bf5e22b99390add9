// Package validate implements the settings validation command.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/errors"
)

// Command creates the validate command, which checks the effective settings
// and reports every issue without running any analysis.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := conf.ValidateSettings(settings)
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue.String())
			}
			return errors.Newf("configuration has %d issue(s)", len(issues)).
				Component("conf").
				Category(errors.CategoryValidation).
				Build()
		},
	}
}
