package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/exbot/config"
	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/logging"
	"github.com/rustyeddy/exbot/market"
)

var priceCmd = &cobra.Command{
	Use:   "price <symbol>",
	Short: "Print the last traded price of a symbol",
	Long: `Query one venue for the last traded price.

Example:
  exbot price BTC-USD --exchange coinbase_sandbox`,
	Args: cobra.ExactArgs(1),
	RunE: runPrice,
}

var candlesCmd = &cobra.Command{
	Use:   "candles <symbol>",
	Short: "Print recent candles of a symbol",
	Long: `Query one venue for price history and print it as a table.

Example:
  exbot candles BTCUSDT --exchange binance --interval 1h --lookback 24`,
	Args: cobra.ExactArgs(1),
	RunE: runCandles,
}

var (
	mktExchange  string
	mktCredsPath string
	mktBaseURL   string
	mktInterval  string
	mktLookback  int
)

func init() {
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(candlesCmd)

	for _, c := range []*cobra.Command{priceCmd, candlesCmd} {
		c.Flags().StringVarP(&mktExchange, "exchange", "e", "coinbase", "exchange adapter name")
		c.Flags().StringVar(&mktCredsPath, "credentials", "", "credentials file (YAML or JSON)")
		c.Flags().StringVar(&mktBaseURL, "base-url", "", "override the venue REST endpoint")
	}
	candlesCmd.Flags().StringVarP(&mktInterval, "interval", "i", "1h", "candle interval (1m, 5m, 15m, 1h, 1d)")
	candlesCmd.Flags().IntVarP(&mktLookback, "lookback", "n", 24, "number of candles to request")
}

// openVenue builds a short-lived adapter for one-shot queries.
func openVenue(cmd *cobra.Command, symbol string) (exchange.Exchange, error) {
	creds, err := config.LoadCredentials(mktCredsPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cmd.ErrOrStderr(), "warn", "text")
	if err != nil {
		return nil, err
	}
	return exchanges.New(mktExchange, creds.Lookup(mktExchange), exchange.Options{
		BaseURL: mktBaseURL,
		Logger:  log,
		Symbols: []string{symbol},
	})
}

func runPrice(cmd *cobra.Command, args []string) error {
	x, err := openVenue(cmd, args[0])
	if err != nil {
		return err
	}
	defer x.Stop()

	ctx, cancel := context.WithTimeout(cmd.Context(), exchange.DefaultTimeout)
	defer cancel()

	p, err := x.GetPrice(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get price: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %g\n", x.Name(), args[0], p)
	return nil
}

func runCandles(cmd *cobra.Command, args []string) error {
	iv, err := market.ParseInterval(mktInterval)
	if err != nil {
		return err
	}
	if mktLookback <= 0 {
		return fmt.Errorf("lookback must be positive")
	}

	x, err := openVenue(cmd, args[0])
	if err != nil {
		return err
	}
	defer x.Stop()

	ctx, cancel := context.WithTimeout(cmd.Context(), exchange.DefaultTimeout)
	defer cancel()

	end := time.Now().UTC()
	start := end.Add(-time.Duration(mktLookback) * iv.Duration())
	candles, err := x.GetPriceHistory(ctx, args[0], start, end, iv)
	if err != nil {
		return fmt.Errorf("get price history: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-20s %12s %12s %12s %12s %14s\n", "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
	for _, c := range candles {
		fmt.Fprintf(out, "%-20s %12g %12g %12g %12g %14g\n",
			c.Time.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return nil
}
