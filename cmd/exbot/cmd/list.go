package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exchangesCmd = &cobra.Command{
	Use:   "exchanges",
	Short: "List supported exchanges",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range exchanges.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List supported strategies",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range strats.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(exchangesCmd)
	rootCmd.AddCommand(strategiesCmd)
}
