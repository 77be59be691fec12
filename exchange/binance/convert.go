package binance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	bn "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/exbot/market"
)

// klineInterval maps an Interval to the Binance kline interval. The second
// return is false when the one-minute fallback was used.
func klineInterval(iv market.Interval) (string, bool) {
	switch iv {
	case market.Interval1m:
		return "1m", true
	case market.Interval5m:
		return "5m", true
	case market.Interval15m:
		return "15m", true
	case market.Interval1h:
		return "1h", true
	case market.Interval1d:
		return "1d", true
	default:
		return "1m", false
	}
}

func sideType(s market.Side) bn.SideType {
	if s == market.Buy {
		return bn.SideTypeBuy
	}
	return bn.SideTypeSell
}

func parseSide(s bn.SideType) market.Side {
	if s == bn.SideTypeBuy {
		return market.Buy
	}
	return market.Sell
}

func timeInForceType(tif market.TimeInForce) bn.TimeInForceType {
	switch tif {
	case market.GTC:
		return bn.TimeInForceTypeGTC
	case market.IOC:
		return bn.TimeInForceTypeIOC
	default:
		return bn.TimeInForceTypeFOK
	}
}

// activeStatus reports whether an order in this state can still fill.
func activeStatus(s bn.OrderStatusType) bool {
	switch string(s) {
	case "NEW", "PARTIALLY_FILLED", "PENDING_CANCEL":
		return true
	default:
		return false
	}
}

// orderID packs symbol and numeric id; Binance needs both to find an order.
func orderID(symbol string, id int64) string {
	return symbol + ":" + strconv.FormatInt(id, 10)
}

func splitOrderID(s string) (string, int64, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("order id %q is not SYMBOL:ID", s)
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("order id %q: %w", s, err)
	}
	return s[:i], id, nil
}

func toCandle(k *bn.Kline) (market.Candle, error) {
	var vals [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := parseNumber(s)
		if err != nil {
			return market.Candle{}, err
		}
		vals[i] = v
	}
	return market.Candle{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func toOrderInfo(o *bn.Order) (market.OrderInfo, error) {
	price, err := parseNumber(o.Price)
	if err != nil {
		return market.OrderInfo{}, err
	}
	size, err := parseNumber(o.OrigQuantity)
	if err != nil {
		return market.OrderInfo{}, err
	}
	filled, err := parseNumber(o.ExecutedQuantity)
	if err != nil {
		return market.OrderInfo{}, err
	}
	if filled > size {
		filled = size
	}
	return market.OrderInfo{
		OrderID:     orderID(o.Symbol, o.OrderID),
		Symbol:      o.Symbol,
		Side:        parseSide(o.Side),
		Price:       price,
		Size:        size,
		TimeInForce: market.ParseTimeInForce(string(o.TimeInForce)),
		Fulfilled:   filled,
		Active:      activeStatus(o.Status),
	}, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func formatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}
