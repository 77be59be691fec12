package market

import (
	"errors"
	"fmt"
)

var ErrInvalidOrder = errors.New("invalid order")

// OrderInfo is a snapshot of one order as reported by a venue.
// Fulfilled is the cumulative filled size; once Active is false no further
// fills can occur.
type OrderInfo struct {
	OrderID     string
	Symbol      string
	Side        Side
	Price       float64
	Size        float64
	TimeInForce TimeInForce
	Fulfilled   float64
	Active      bool
}

// Remaining is the unfilled size.
func (o OrderInfo) Remaining() float64 {
	r := o.Size - o.Fulfilled
	if r < 0 {
		return 0
	}
	return r
}

// Filled reports whether the whole size has been executed.
func (o OrderInfo) Filled() bool {
	return o.Size > 0 && o.Fulfilled >= o.Size
}

// Validate checks 0 <= Fulfilled <= Size.
func (o OrderInfo) Validate() error {
	if o.Fulfilled < 0 || o.Fulfilled > o.Size {
		return fmt.Errorf("%w: order %s fulfilled %v outside [0, %v]", ErrInvalidOrder, o.OrderID, o.Fulfilled, o.Size)
	}
	return nil
}

// NewOrderRequest is everything needed to place a limit order. Build it
// with NewLimitOrder; the fields are unexported so a request cannot change
// after validation.
type NewOrderRequest struct {
	side        Side
	symbol      string
	price       float64
	size        float64
	timeInForce TimeInForce

	clientOrderID string
}

// NewLimitOrder validates and builds a limit order request.
func NewLimitOrder(side Side, symbol string, price, size float64, tif TimeInForce) (NewOrderRequest, error) {
	switch {
	case !side.Valid():
		return NewOrderRequest{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	case symbol == "":
		return NewOrderRequest{}, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case price <= 0:
		return NewOrderRequest{}, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidOrder, price)
	case size <= 0:
		return NewOrderRequest{}, fmt.Errorf("%w: size must be positive, got %v", ErrInvalidOrder, size)
	}
	if tif == "" {
		tif = GTC
	}
	return NewOrderRequest{
		side:        side,
		symbol:      symbol,
		price:       price,
		size:        size,
		timeInForce: ParseTimeInForce(string(tif)),
	}, nil
}

func (r NewOrderRequest) Side() Side               { return r.side }
func (r NewOrderRequest) Symbol() string           { return r.symbol }
func (r NewOrderRequest) Price() float64           { return r.price }
func (r NewOrderRequest) Size() float64            { return r.size }
func (r NewOrderRequest) TimeInForce() TimeInForce { return r.timeInForce }

// ClientOrderID is the caller-chosen id venues use to recognize a resent
// request. Empty means the adapter picks a fresh one.
func (r NewOrderRequest) ClientOrderID() string { return r.clientOrderID }

// WithClientOrderID returns a copy of r carrying id.
func (r NewOrderRequest) WithClientOrderID(id string) NewOrderRequest {
	r.clientOrderID = id
	return r
}

// Notional is price * size in the quote currency.
func (r NewOrderRequest) Notional() float64 { return r.price * r.size }

func (r NewOrderRequest) String() string {
	return fmt.Sprintf("%s %v %s @ %v %s", r.side, r.size, r.symbol, r.price, r.timeInForce)
}

// Acknowledged is the OrderInfo a request becomes once a venue accepts it.
func (r NewOrderRequest) Acknowledged(orderID string) OrderInfo {
	return OrderInfo{
		OrderID:     orderID,
		Symbol:      r.symbol,
		Side:        r.side,
		Price:       r.price,
		Size:        r.size,
		TimeInForce: r.timeInForce,
		Fulfilled:   0,
		Active:      true,
	}
}

// CancelRequest references an existing order.
type CancelRequest struct {
	OrderID string
}
