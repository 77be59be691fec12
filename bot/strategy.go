package bot

import (
	"context"
	"time"

	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/orders"
)

// Action is what a strategy asks the bot to do this cycle.
type Action string

const (
	Wait      Action = "WAIT"
	PlaceBuy  Action = "PLACE_BUY"
	PlaceSell Action = "PLACE_SELL"
	Cancel    Action = "CANCEL"
)

// Snapshot is the market and order state a strategy decides on.
type Snapshot struct {
	Time       time.Time
	Symbol     string
	Price      float64
	Candles    []market.Candle
	OpenOrders []orders.Order
	// Feedback carries rejections and vanished orders from the previous
	// cycle.
	Feedback []orders.Feedback
}

// Decision is a single instruction. Price, Size and TimeInForce apply to
// the place actions, OrderID to Cancel.
type Decision struct {
	Action      Action
	Price       float64
	Size        float64
	TimeInForce market.TimeInForce
	OrderID     string
	Reason      string
}

// Strategy returns exactly one decision per cycle.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, s Snapshot) (Decision, error)
}

// CancelRequest is the venue request a Cancel decision stands for.
func (d Decision) CancelRequest() market.CancelRequest {
	return market.CancelRequest{OrderID: d.OrderID}
}

func WaitDecision(reason string) Decision {
	return Decision{Action: Wait, Reason: reason}
}

func BuyDecision(price, size float64, tif market.TimeInForce, reason string) Decision {
	return Decision{Action: PlaceBuy, Price: price, Size: size, TimeInForce: tif, Reason: reason}
}

func SellDecision(price, size float64, tif market.TimeInForce, reason string) Decision {
	return Decision{Action: PlaceSell, Price: price, Size: size, TimeInForce: tif, Reason: reason}
}

func CancelDecision(orderID, reason string) Decision {
	return Decision{Action: Cancel, OrderID: orderID, Reason: reason}
}
