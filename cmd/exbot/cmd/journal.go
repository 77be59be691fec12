package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/exbot/journal"
	"github.com/rustyeddy/exbot/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite journal",
	Long: `Query and display records from a SQLite journal written by "exbot run".

Subcommands:
  order  - Show the lifecycle of one order by its local reference
  prices - List prices fetched for a symbol on a given day

Examples:
  exbot journal order 01HQ3K9Z8M0000000000000000
  exbot journal prices BTC-USD 2024-01-15`,
}

var journalOrderCmd = &cobra.Command{
	Use:   "order <ref>",
	Short: "Show every transition of one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrder,
}

var journalPricesCmd = &cobra.Command{
	Use:   "prices <symbol> [YYYY-MM-DD]",
	Short: "List prices fetched on a day (default today, UTC)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runJournalPrices,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOrderCmd)
	journalCmd.AddCommand(journalPricesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./exbot.db", "path to SQLite journal DB")
}

func runJournalOrder(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	events, err := j.ListOrderEvents(args[0])
	if err != nil {
		return fmt.Errorf("query order: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events for order %s", args[0])
	}

	out := cmd.OutOrStdout()
	first := events[0]
	fmt.Fprintf(out, "* Order %s %s %s %g @ %g\n", first.Ref, first.Side, first.Symbol, first.Size, first.Price)
	if created, err := id.Time(first.Ref); err == nil {
		fmt.Fprintf(out, "  created %s\n", created.Format(time.RFC3339))
	}
	for _, e := range events {
		fmt.Fprintf(out, "  - %s %s -> %s filled=%g id=%s",
			e.Time.UTC().Format(time.RFC3339), e.From, e.To, e.Filled, e.OrderID)
		if e.Reason != "" {
			fmt.Fprintf(out, " (%s)", e.Reason)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runJournalPrices(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC().Format("2006-01-02")
	if len(args) == 2 {
		day = args[1]
	}
	start, end, err := dayBounds(time.UTC, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	samples, err := j.ListPricesBetween(args[0], start, end)
	if err != nil {
		return fmt.Errorf("query prices: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, p := range samples {
		fmt.Fprintf(out, "%s %s %s %g\n", p.Time.UTC().Format(time.RFC3339), p.Exchange, p.Symbol, p.Price)
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
