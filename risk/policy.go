package risk

import "github.com/rustyeddy/exbot/market"

// Policy holds pre-trade limits. A zero limit disables its check.
type Policy struct {
	MaxOrderSize  float64 `json:"max_order_size" yaml:"max_order_size"`   // base units per order
	MaxNotional   float64 `json:"max_notional" yaml:"max_notional"`       // price * size per order
	MaxOpenOrders int     `json:"max_open_orders" yaml:"max_open_orders"` // resting orders at once
}

// Intent is an order the bot is about to place.
type Intent struct {
	Symbol string
	Side   market.Side
	Price  float64
	Size   float64
}

func (i Intent) Notional() float64 { return i.Price * i.Size }
