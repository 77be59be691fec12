package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/exbot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage bot configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  exbot config init -o bot.yaml
  exbot config validate -f bot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file loads, passes validation and names a
registered exchange and strategy.`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "exbot.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  exbot run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Exchange: %s\n", cfg.Exchange)
	fmt.Fprintf(out, "  Strategy: %s on %s every %s\n", cfg.Strategy, cfg.Symbol, cfg.PollInterval())
	fmt.Fprintf(out, "  Journal: %s\n", journalType(cfg))
	return nil
}

// loadConfig loads path and checks the names against the registries.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkNames(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkNames(cfg *config.Config) error {
	if !exchanges.Has(cfg.Exchange) {
		return fmt.Errorf("unknown exchange %q (supported: %v)", cfg.Exchange, exchanges.Names())
	}
	if !strats.Has(cfg.Strategy) {
		return fmt.Errorf("unknown strategy %q (supported: %v)", cfg.Strategy, strats.Names())
	}
	return nil
}

func journalType(cfg *config.Config) string {
	if cfg.Journal.Type == "" {
		return "none"
	}
	return cfg.Journal.Type
}
