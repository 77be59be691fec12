// Package exchangetest provides a testify mock of the exchange contract.
package exchangetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
)

// Mock implements exchange.Exchange. Name and Status are answered from
// fields so tests only set expectations for venue calls.
type Mock struct {
	mock.Mock
	VenueName string
	Holder    market.StatusHolder
}

var _ exchange.Exchange = (*Mock)(nil)

func (m *Mock) Name() string {
	if m.VenueName == "" {
		return "mock"
	}
	return m.VenueName
}

func (m *Mock) Status() market.Status { return m.Holder.Get() }

func (m *Mock) GetPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Mock) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval market.Interval) ([]market.Candle, error) {
	args := m.Called(ctx, symbol, start, end, interval)
	candles, _ := args.Get(0).([]market.Candle)
	return candles, args.Error(1)
}

func (m *Mock) PlaceLimitOrder(ctx context.Context, req market.NewOrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *Mock) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *Mock) CancelAllOrders(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *Mock) GetOrderInfo(ctx context.Context, orderID string) (market.OrderInfo, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(market.OrderInfo), args.Error(1)
}

func (m *Mock) GetAllOpenOrders(ctx context.Context) ([]market.OrderInfo, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]market.OrderInfo)
	return orders, args.Error(1)
}

func (m *Mock) Stop() error {
	args := m.Called()
	m.Holder.Set(market.StatusStopping)
	return args.Error(0)
}

// NetErr returns a NetworkUnavailable error as an adapter would.
func NetErr(op string) error {
	return exchange.Errorf(exchange.NetworkUnavailable, "mock", op, nil, "connection refused")
}

// KindErr returns an adapter error of the given kind.
func KindErr(kind exchange.Kind, op string) error {
	return exchange.Errorf(kind, "mock", op, nil, "%s", kind)
}
