package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/exbot/strategies"
	"github.com/rustyeddy/exbot/venues"
)

var rootCmd = &cobra.Command{
	Use:   "exbot",
	Short: "An exchange trading bot with pluggable venues and strategies",
	Long: `Exbot polls a crypto exchange, asks a strategy what to do and tracks
every order it places until the venue settles it.

It provides tools for:
  - Running a bot from a configuration file
  - Generating and validating configuration files
  - Listing the supported exchanges and strategies
  - Querying prices and candles from any supported venue`,
	SilenceUsage: true,
}

// Registries used by every command. Tests replace them.
var (
	exchanges = venues.Default()
	strats    = strategies.Default()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
