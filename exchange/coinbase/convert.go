package coinbase

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/exbot/market"
)

// granularity maps an Interval to candle granularity in seconds. The
// second return is false when the interval was not recognised and the
// one-minute fallback was used.
func granularity(iv market.Interval) (string, bool) {
	switch iv {
	case market.Interval1m:
		return "60", true
	case market.Interval5m:
		return "300", true
	case market.Interval15m:
		return "900", true
	case market.Interval1h:
		return "3600", true
	case market.Interval1d:
		return "86400", true
	default:
		return "60", false
	}
}

func wireSide(s market.Side) string {
	if s == market.Buy {
		return "buy"
	}
	return "sell"
}

func parseSide(s string) market.Side {
	if s == "buy" {
		return market.Buy
	}
	return market.Sell
}

func wireTimeInForce(tif market.TimeInForce) string {
	switch tif {
	case market.GTC:
		return "GTC"
	case market.IOC:
		return "IOC"
	default:
		return "FOK"
	}
}

// Column positions in a candle row as Coinbase sends it:
// [time, low, high, open, close, volume].
const (
	colTime = iota
	colLow
	colHigh
	colOpen
	colClose
	colVolume
	candleCols
)

// toCandle reorders a raw row into canonical open/high/low/close order and
// converts the epoch seconds to a UTC time.
func toCandle(row []float64) (market.Candle, error) {
	if len(row) < candleCols {
		return market.Candle{}, fmt.Errorf("candle row has %d columns, want %d", len(row), candleCols)
	}
	return market.Candle{
		Time:   time.Unix(int64(row[colTime]), 0).UTC(),
		Open:   row[colOpen],
		High:   row[colHigh],
		Low:    row[colLow],
		Close:  row[colClose],
		Volume: row[colVolume],
	}, nil
}

func toCandles(rows [][]float64) ([]market.Candle, error) {
	out := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := toCandle(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, c)
	}
	return market.SortCandles(out), nil
}

// orderBody is the POST /orders payload for a limit order.
type orderBody struct {
	ClientOID   string `json:"client_oid,omitempty"`
	ProductID   string `json:"product_id"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	STP         string `json:"stp"`
	TimeInForce string `json:"time_in_force"`
	Price       string `json:"price"`
	Size        string `json:"size"`
}

func newOrderBody(req market.NewOrderRequest, clientOID string) orderBody {
	return orderBody{
		ClientOID:   clientOID,
		ProductID:   req.Symbol(),
		Type:        "limit",
		Side:        wireSide(req.Side()),
		STP:         "dc",
		TimeInForce: wireTimeInForce(req.TimeInForce()),
		Price:       decimal.NewFromFloat(req.Price()).String(),
		Size:        decimal.NewFromFloat(req.Size()).String(),
	}
}

// apiOrder is an order as returned by /orders endpoints.
type apiOrder struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	FilledSize   string `json:"filled_size"`
	TimeInForce  string `json:"time_in_force"`
	Status       string `json:"status"`
	DoneReason   string `json:"done_reason"`
	RejectReason string `json:"reject_reason"`
	Settled      bool   `json:"settled"`
}

// active reports whether the venue can still fill the order.
func (o apiOrder) active() bool {
	switch o.Status {
	case "pending", "open", "active", "received":
		return true
	default:
		return false
	}
}

func (o apiOrder) toOrderInfo() (market.OrderInfo, error) {
	price, err := parseNumber(o.Price)
	if err != nil {
		return market.OrderInfo{}, fmt.Errorf("price: %w", err)
	}
	size, err := parseNumber(o.Size)
	if err != nil {
		return market.OrderInfo{}, fmt.Errorf("size: %w", err)
	}
	filled, err := parseNumber(o.FilledSize)
	if err != nil {
		return market.OrderInfo{}, fmt.Errorf("filled_size: %w", err)
	}
	if filled > size {
		filled = size
	}
	return market.OrderInfo{
		OrderID:     o.ID,
		Symbol:      o.ProductID,
		Side:        parseSide(o.Side),
		Price:       price,
		Size:        size,
		TimeInForce: market.ParseTimeInForce(o.TimeInForce),
		Fulfilled:   filled,
		Active:      o.active(),
	}, nil
}

// parseNumber reads a venue decimal string. Empty means zero.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", strconv.Quote(s), err)
	}
	return d.InexactFloat64(), nil
}
