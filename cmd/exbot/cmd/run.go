package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/exbot/api"
	"github.com/rustyeddy/exbot/bot"
	"github.com/rustyeddy/exbot/config"
	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/journal"
	"github.com/rustyeddy/exbot/logging"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/id"
	"github.com/rustyeddy/exbot/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a bot from a config file",
	Long: `Run a trading bot using settings from a configuration file.

The config file names the exchange adapter, the strategy and its
parameters, the polling cadence, the retry policy and the risk limits.
The bot runs until interrupted, until --max-cycles is reached or until
a fatal exchange error halts it.

Example:
  exbot run -f bot.yaml --status-addr :8080`,
	RunE: runRun,
}

var (
	runConfigPath string
	runExchange   string
	runStatusAddr string
	runMaxCycles  int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runExchange, "exchange", "e", "", "override the configured exchange")
	runCmd.Flags().StringVar(&runStatusAddr, "status-addr", "", "serve the status API on this address")
	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", 0, "stop after this many cycles (0 runs until interrupted)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runExchange != "" {
		cfg.Exchange = runExchange
	}
	if runStatusAddr != "" {
		cfg.StatusAddr = runStatusAddr
	}
	if err := checkNames(cfg); err != nil {
		return err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log = log.With("run", id.New())

	strat, err := strats.New(cfg.Strategy, strategies.Params(cfg.StrategyParams))
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	x, err := exchanges.New(cfg.Exchange, creds.Lookup(cfg.Exchange), exchange.Options{
		BaseURL: cfg.Venue.BaseURL,
		FeedURL: cfg.Venue.FeedURL,
		UseFeed: cfg.Venue.UseFeed,
		Timeout: cfg.Timeout(),
		Logger:  log.With("exchange", cfg.Exchange),
		Symbols: []string{cfg.Symbol},
	})
	if err != nil {
		return fmt.Errorf("exchange: %w", err)
	}

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath, cfg.Journal.EventsFile)
	if err != nil {
		x.Stop()
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	b := bot.New(botConfig(cfg), x, strat, bot.WithLogger(log), bot.WithJournal(j))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := api.NewHandler(b, log).Serve(srvCtx, cfg.StatusAddr); err != nil {
				log.Error("status server failed", "err", err)
			}
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Running %s on %s (%s)\n", cfg.Strategy, cfg.Exchange, cfg.Symbol)
	runErr := b.Run(ctx)

	st := b.State()
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d cycles: %s\n", st.Cycles, st.Status)
	if runErr != nil {
		return fmt.Errorf("bot: %w", runErr)
	}
	return nil
}

func botConfig(cfg *config.Config) bot.Config {
	iv, err := market.ParseInterval(cfg.Interval)
	if err != nil {
		iv = market.Interval1m
	}
	return bot.Config{
		Name:            cfg.Strategy + "-" + cfg.Symbol,
		Symbol:          cfg.Symbol,
		PollInterval:    cfg.PollInterval(),
		Interval:        iv,
		HistoryLookback: cfg.HistoryLookback,
		Backoff:         cfg.Backoff.Policy(),
		Risk:            cfg.Risk,
		AdoptOpenOrders: cfg.AdoptOpenOrders,
		MaxCycles:       runMaxCycles,
	}
}
