// Package commands implements the jobengine CLI using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobengine",
		Short: "Durable, multi-tenant job scheduler",
		Long: `jobengine runs recurring and one-time jobs with durable state,
at-least-once delivery, and automatic recovery from missed dispatches.

Examples:
  jobengine serve
  jobengine jobs create
  jobengine jobs list --owner acme
  jobengine jobs trigger <job-id>
  jobengine health`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newJobsCmd(),
		newExecutionsCmd(),
		newConfigCmd(),
		newHealthCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringP("owner", "o", "default", "tenant owner id")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
