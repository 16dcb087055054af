// Package cmd provides the CLI commands for the admin auth service.
package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adminauth",
	Short: "Authentication gateway for the admin panel",
	Long: `adminauth guards the admin panel: it checks the admin credentials,
throttles repeated login failures per client and issues signed session cookies.

Configuration is read from the environment (and a .env file if present).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it
func Execute() error {
	return rootCmd.Execute()
}
