// Package coinbase implements the exchange contract against the Coinbase
// Exchange REST API (and its public sandbox).
package coinbase

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
)

const (
	LiveURL        = "https://api.exchange.coinbase.com"
	SandboxURL     = "https://api-public.sandbox.exchange.coinbase.com"
	LiveFeedURL    = "wss://ws-feed.exchange.coinbase.com"
	SandboxFeedURL = "wss://ws-feed-public.sandbox.exchange.coinbase.com"

	userAgent = "exbot/1.0"

	// feedMaxAge is how old a streamed price may be before GetPrice falls
	// back to REST.
	feedMaxAge = 5 * time.Second

	pageLimit = 100
)

const (
	statusActive = market.StatusActive
	statusError  = market.StatusError
)

// Exchange is a Coinbase Exchange adapter.
type Exchange struct {
	name    string
	baseURL string
	http    *http.Client
	log     *slog.Logger

	signer  *Signer
	authErr error

	feed *TickerFeed

	status   market.StatusHolder
	stopOnce sync.Once
}

var _ exchange.Exchange = (*Exchange)(nil)

// New returns an adapter for the live venue.
func New(creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	return newExchange("coinbase", LiveURL, LiveFeedURL, creds, opts)
}

// NewSandbox returns an adapter for the public sandbox.
func NewSandbox(creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	return newExchange("coinbase_sandbox", SandboxURL, SandboxFeedURL, creds, opts)
}

func newExchange(name, baseURL, feedURL string, creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	if opts.FeedURL != "" {
		feedURL = opts.FeedURL
	}

	x := &Exchange{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTP(),
		log:     opts.Log().With("exchange", name),
	}

	// Missing or malformed credentials are reported on the first private
	// call so public market data still works.
	if creds.Empty() {
		x.authErr = exchange.ErrMissingCredentials
	} else if s, err := NewSigner(creds.Key, creds.Secret, creds.Password); err != nil {
		x.authErr = err
	} else {
		x.signer = s
	}

	if opts.UseFeed && len(opts.Symbols) > 0 {
		x.feed = NewTickerFeed(feedURL, opts.Symbols, x.log)
		x.feed.Start(context.Background())
	}
	return x, nil
}

func (x *Exchange) Name() string          { return x.name }
func (x *Exchange) Status() market.Status { return x.status.Get() }

// GetPrice returns the last trade price from the ticker.
func (x *Exchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	const op = "GetPrice"

	if x.feed != nil {
		if p, ok := x.feed.Price(symbol, feedMaxAge); ok {
			return p, nil
		}
	}

	resp, err := x.do(ctx, op, http.MethodGet, "/products/"+url.PathEscape(symbol)+"/ticker", nil, nil, false)
	if err != nil {
		return 0, x.classify(op, err, func(*venueError) exchange.Kind { return exchange.UnknownSymbol })
	}

	var t struct {
		Price string `json:"price"`
	}
	if err := decode(x, op, resp.body, &t); err != nil {
		return 0, err
	}
	price, err := parseNumber(t.Price)
	if err != nil || price <= 0 {
		return 0, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "ticker for %s has no usable price", symbol)
	}

	x.log.Debug("price fetched", "symbol", symbol, "price", price)
	return price, nil
}

// GetPriceHistory returns candles between start and end.
func (x *Exchange) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval market.Interval) ([]market.Candle, error) {
	const op = "GetPriceHistory"

	gran, ok := granularity(interval)
	if !ok {
		x.log.Warn("unsupported interval, falling back to 1m", "symbol", symbol, "interval", string(interval))
	}

	q := url.Values{}
	q.Set("granularity", gran)
	if !start.IsZero() && !end.IsZero() {
		q.Set("start", start.UTC().Format(time.RFC3339))
		q.Set("end", end.UTC().Format(time.RFC3339))
	}

	resp, err := x.do(ctx, op, http.MethodGet, "/products/"+url.PathEscape(symbol)+"/candles", q, nil, false)
	if err != nil {
		return nil, x.classify(op, err, func(ve *venueError) exchange.Kind {
			if ve.Status == http.StatusNotFound {
				return exchange.UnknownSymbol
			}
			return exchange.InvalidParameters
		})
	}

	var rows [][]float64
	if err := decode(x, op, resp.body, &rows); err != nil {
		return nil, err
	}
	candles, err := toCandles(rows)
	if err != nil {
		return nil, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed candles")
	}
	return candles, nil
}

// PlaceLimitOrder submits a limit order with decrement-and-cancel
// self-trade prevention.
func (x *Exchange) PlaceLimitOrder(ctx context.Context, req market.NewOrderRequest) (string, error) {
	const op = "PlaceLimitOrder"

	clientOID := req.ClientOrderID()
	if clientOID == "" {
		clientOID = uuid.NewString()
	}
	body := newOrderBody(req, clientOID)
	resp, err := x.do(ctx, op, http.MethodPost, "/orders", nil, body, true)
	if err != nil {
		return "", x.classify(op, err, func(*venueError) exchange.Kind { return exchange.RejectedByVenue })
	}

	var ack apiOrder
	if err := decode(x, op, resp.body, &ack); err != nil {
		return "", err
	}
	if ack.Status == "rejected" {
		return "", exchange.Errorf(exchange.RejectedByVenue, x.name, op, nil, "order rejected: %s", ack.RejectReason)
	}
	if ack.ID == "" {
		return "", exchange.Errorf(exchange.InvalidParameters, x.name, op, nil, "acknowledgement has no order id")
	}

	x.log.Info("order placed", "order_id", ack.ID, "order", req.String())
	return ack.ID, nil
}

// nothingToCancel reports venue answers meaning the order is already gone.
func nothingToCancel(ve *venueError) bool {
	if ve.Status == http.StatusNotFound {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(ve.Message)) {
	case "order already done", "order not found", "notfound":
		return true
	}
	return false
}

// CancelOrder cancels one order. Orders that are already filled,
// cancelled or unknown report false without error.
func (x *Exchange) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	const op = "CancelOrder"

	_, err := x.do(ctx, op, http.MethodDelete, "/orders/"+url.PathEscape(orderID), nil, nil, true)
	if err != nil {
		if ve, ok := err.(*venueError); ok && nothingToCancel(ve) {
			x.log.Info("nothing to cancel", "order_id", orderID, "reason", ve.Message)
			return false, nil
		}
		return false, x.classify(op, err, func(*venueError) exchange.Kind { return exchange.RejectedByVenue })
	}
	return true, nil
}

// CancelAllOrders cancels every open order on the account.
func (x *Exchange) CancelAllOrders(ctx context.Context) (bool, error) {
	const op = "CancelAllOrders"

	resp, err := x.do(ctx, op, http.MethodDelete, "/orders", nil, nil, true)
	if err != nil {
		return false, x.classify(op, err, func(*venueError) exchange.Kind { return exchange.RejectedByVenue })
	}

	var ids []string
	if err := decode(x, op, resp.body, &ids); err != nil {
		return false, err
	}
	x.log.Info("cancelled all orders", "count", len(ids))
	return true, nil
}

// GetOrderInfo returns the venue's view of one order.
func (x *Exchange) GetOrderInfo(ctx context.Context, orderID string) (market.OrderInfo, error) {
	const op = "GetOrderInfo"

	resp, err := x.do(ctx, op, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, true)
	if err != nil {
		return market.OrderInfo{}, x.classify(op, err, func(ve *venueError) exchange.Kind {
			if ve.Status == http.StatusNotFound || strings.Contains(strings.ToLower(ve.Message), "notfound") {
				return exchange.OrderNotFound
			}
			return exchange.InvalidParameters
		})
	}

	var o apiOrder
	if err := decode(x, op, resp.body, &o); err != nil {
		return market.OrderInfo{}, err
	}
	info, err := o.toOrderInfo()
	if err != nil {
		return market.OrderInfo{}, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed order %s", orderID)
	}
	return info, nil
}

// GetAllOpenOrders pages through every order that can still fill.
func (x *Exchange) GetAllOpenOrders(ctx context.Context) ([]market.OrderInfo, error) {
	const op = "GetAllOpenOrders"

	var out []market.OrderInfo
	after := ""
	for {
		q := url.Values{}
		q.Add("status", "open")
		q.Add("status", "pending")
		q.Add("status", "active")
		q.Set("limit", "100")
		if after != "" {
			q.Set("after", after)
		}

		resp, err := x.do(ctx, op, http.MethodGet, "/orders", q, nil, true)
		if err != nil {
			return nil, x.classify(op, err, func(*venueError) exchange.Kind { return exchange.InvalidParameters })
		}

		var page []apiOrder
		if err := decode(x, op, resp.body, &page); err != nil {
			return nil, err
		}
		for _, o := range page {
			info, err := o.toOrderInfo()
			if err != nil {
				return nil, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed order %s", o.ID)
			}
			out = append(out, info)
		}

		after = resp.header.Get("CB-AFTER")
		if after == "" || len(page) < pageLimit {
			return out, nil
		}
	}
}

// Stop closes the price feed and idle connections.
func (x *Exchange) Stop() error {
	x.stopOnce.Do(func() {
		x.status.Set(market.StatusStopping)
		if x.feed != nil {
			x.feed.Close()
		}
		x.http.CloseIdleConnections()
		x.signer.Wipe()
		x.log.Info("exchange stopped")
	})
	return nil
}
