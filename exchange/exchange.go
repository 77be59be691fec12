// Package exchange defines the contract every venue adapter implements and
// the error taxonomy callers use to decide between retrying, reporting and
// halting.
package exchange

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/exbot/market"
)

// Exchange is the capability set of a trading venue. Callers program
// against this interface and never depend on a concrete adapter.
//
// Every method either returns a valid canonical result or fails with an
// *Error whose Kind says what went wrong. Result values accompanying an
// error are meaningless.
type Exchange interface {
	Name() string
	Status() market.Status

	// GetPrice returns the last traded price for symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetPriceHistory returns candles in ascending time order. Zero start
	// or end selects the venue's default lookback.
	GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval market.Interval) ([]market.Candle, error)

	// PlaceLimitOrder submits req and returns the venue-assigned order id.
	PlaceLimitOrder(ctx context.Context, req market.NewOrderRequest) (string, error)

	// CancelOrder reports false, without error, when there was nothing
	// left to cancel.
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	CancelAllOrders(ctx context.Context) (bool, error)

	GetOrderInfo(ctx context.Context, orderID string) (market.OrderInfo, error)
	GetAllOpenOrders(ctx context.Context) ([]market.OrderInfo, error)

	// Stop releases transport resources. It is safe to call more than once.
	Stop() error
}

// DefaultTimeout bounds every venue round trip.
const DefaultTimeout = 10 * time.Second

// Options carries adapter construction settings that are not credentials.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger

	// FeedURL and UseFeed enable a streaming price feed for Symbols where
	// the venue offers one.
	FeedURL string
	UseFeed bool
	Symbols []string
}

// HTTP returns the configured client or one bounded by Timeout.
func (o Options) HTTP() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Log returns the configured logger or slog.Default.
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
