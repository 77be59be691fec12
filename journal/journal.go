// Package journal records order lifecycle events and observed prices for
// later inspection. It is an event log, not trading state.
package journal

import (
	"fmt"
	"strings"
	"time"
)

// OrderEvent is one applied order state transition.
type OrderEvent struct {
	Time    time.Time
	Ref     string
	OrderID string
	Symbol  string
	Side    string
	From    string
	To      string
	Price   float64
	Size    float64
	Filled  float64
	Reason  string
}

// PriceSample is a price the bot fetched.
type PriceSample struct {
	Time     time.Time
	Exchange string
	Symbol   string
	Price    float64
}

type Journal interface {
	RecordTransition(OrderEvent) error
	RecordPrice(PriceSample) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTransition(OrderEvent) error { return nil }
func (Nop) RecordPrice(PriceSample) error     { return nil }
func (Nop) Close() error                      { return nil }

// Open builds the journal named by kind: "sqlite", "csv" or "none".
func Open(kind, dbPath, eventsPath string) (Journal, error) {
	switch kind {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		return NewSQLite(dbPath)
	case "csv":
		return NewCSV(eventsPath, pricesPath(eventsPath))
	default:
		return nil, fmt.Errorf("unknown journal type %q (want sqlite, csv or none)", kind)
	}
}

// pricesPath derives the price file from the events file: events.csv ->
// events.prices.csv.
func pricesPath(events string) string {
	if strings.HasSuffix(events, ".csv") {
		return strings.TrimSuffix(events, ".csv") + ".prices.csv"
	}
	return events + ".prices"
}
