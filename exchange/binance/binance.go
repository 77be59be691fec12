// Package binance implements the exchange contract for Binance Spot using
// the go-binance SDK.
package binance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	bn "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/id"
)

const (
	LiveURL    = "https://api.binance.com"
	TestnetURL = "https://testnet.binance.vision"
)

// Exchange is a Binance Spot adapter.
type Exchange struct {
	name   string
	client *bn.Client
	http   *http.Client
	creds  exchange.Credentials
	log    *slog.Logger

	status   market.StatusHolder
	stopOnce sync.Once
}

var _ exchange.Exchange = (*Exchange)(nil)

// New returns an adapter for the live venue.
func New(creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	return newExchange("binance", LiveURL, creds, opts)
}

// NewTestnet returns an adapter for the spot testnet.
func NewTestnet(creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	return newExchange("binance_testnet", TestnetURL, creds, opts)
}

func newExchange(name, baseURL string, creds exchange.Credentials, opts exchange.Options) (*Exchange, error) {
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	httpClient := opts.HTTP()

	client := bn.NewClient(creds.Key, creds.Secret)
	client.BaseURL = baseURL
	client.HTTPClient = httpClient

	return &Exchange{
		name:   name,
		client: client,
		http:   httpClient,
		creds:  creds,
		log:    opts.Log().With("exchange", name),
	}, nil
}

func (x *Exchange) Name() string          { return x.name }
func (x *Exchange) Status() market.Status { return x.status.Get() }

// kindForCode maps Binance API error codes onto the error taxonomy.
func kindForCode(code int64) exchange.Kind {
	switch {
	case code == 0, code == -1000, code == -1001, code == -1003, code == -1007, code == -1008:
		return exchange.NetworkUnavailable
	case code == -1021, code == -1022, code == -2008, code == -2014, code == -2015:
		return exchange.AuthenticationFailed
	case code == -1121:
		return exchange.UnknownSymbol
	case code == -2011, code == -2013:
		return exchange.OrderNotFound
	case code == -1013, code == -2010:
		return exchange.RejectedByVenue
	case code <= -1100 && code > -1200:
		return exchange.InvalidParameters
	default:
		return exchange.RejectedByVenue
	}
}

// wrap classifies an SDK error. API errors are well-formed venue answers;
// anything else means the round trip did not complete.
func (x *Exchange) wrap(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		kind := kindForCode(apiErr.Code)
		if kind == exchange.AuthenticationFailed {
			x.status.Set(market.StatusError)
		}
		return exchange.Errorf(kind, x.name, op, apiErr, "code %d", apiErr.Code)
	}
	return exchange.Errorf(exchange.NetworkUnavailable, x.name, op, err, "request failed")
}

func (x *Exchange) ok() { x.status.Set(market.StatusActive) }

func (x *Exchange) requireCreds(op string) error {
	if x.creds.Empty() {
		x.status.Set(market.StatusError)
		return exchange.Errorf(exchange.AuthenticationFailed, x.name, op, exchange.ErrMissingCredentials, "no usable credentials")
	}
	return nil
}

func (x *Exchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	const op = "GetPrice"

	prices, err := x.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, x.wrap(op, err)
	}
	x.ok()

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		v, err := parseNumber(p.Price)
		if err != nil || v <= 0 {
			return 0, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "no usable price for %s", symbol)
		}
		x.log.Debug("price fetched", "symbol", symbol, "price", v)
		return v, nil
	}
	return 0, exchange.Errorf(exchange.UnknownSymbol, x.name, op, nil, "%s not in ticker response", symbol)
}

func (x *Exchange) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval market.Interval) ([]market.Candle, error) {
	const op = "GetPriceHistory"

	iv, ok := klineInterval(interval)
	if !ok {
		x.log.Warn("unsupported interval, falling back to 1m", "symbol", symbol, "interval", string(interval))
	}

	svc := x.client.NewKlinesService().Symbol(symbol).Interval(iv)
	if !start.IsZero() && !end.IsZero() {
		svc = svc.StartTime(start.UnixMilli()).EndTime(end.UnixMilli())
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, x.wrap(op, err)
	}
	x.ok()

	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(k)
		if err != nil {
			return nil, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed kline")
		}
		out = append(out, c)
	}
	return market.SortCandles(out), nil
}

func (x *Exchange) PlaceLimitOrder(ctx context.Context, req market.NewOrderRequest) (string, error) {
	const op = "PlaceLimitOrder"
	if err := x.requireCreds(op); err != nil {
		return "", err
	}

	clientID := req.ClientOrderID()
	if clientID == "" {
		clientID = id.New()
	}
	res, err := x.client.NewCreateOrderService().
		Symbol(req.Symbol()).
		Side(sideType(req.Side())).
		Type(bn.OrderTypeLimit).
		TimeInForce(timeInForceType(req.TimeInForce())).
		Quantity(formatNumber(req.Size())).
		Price(formatNumber(req.Price())).
		NewClientOrderID(clientID).
		Do(ctx)
	if err != nil {
		return "", x.wrap(op, err)
	}
	x.ok()

	if string(res.Status) == "REJECTED" {
		return "", exchange.Errorf(exchange.RejectedByVenue, x.name, op, nil, "order %d rejected", res.OrderID)
	}

	oid := orderID(res.Symbol, res.OrderID)
	x.log.Info("order placed", "order_id", oid, "order", req.String())
	return oid, nil
}

func (x *Exchange) CancelOrder(ctx context.Context, oid string) (bool, error) {
	const op = "CancelOrder"
	if err := x.requireCreds(op); err != nil {
		return false, err
	}
	symbol, n, err := splitOrderID(oid)
	if err != nil {
		return false, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "bad order id")
	}

	_, err = x.client.NewCancelOrderService().Symbol(symbol).OrderID(n).Do(ctx)
	if err != nil {
		wrapped := x.wrap(op, err)
		if exchange.KindOf(wrapped) == exchange.OrderNotFound {
			x.log.Info("nothing to cancel", "order_id", oid)
			return false, nil
		}
		return false, wrapped
	}
	x.ok()
	return true, nil
}

// CancelAllOrders cancels open orders on every symbol that has any.
func (x *Exchange) CancelAllOrders(ctx context.Context) (bool, error) {
	const op = "CancelAllOrders"
	if err := x.requireCreds(op); err != nil {
		return false, err
	}

	open, err := x.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return false, x.wrap(op, err)
	}
	x.ok()

	symbols := map[string]struct{}{}
	for _, o := range open {
		symbols[o.Symbol] = struct{}{}
	}
	names := make([]string, 0, len(symbols))
	for s := range symbols {
		names = append(names, s)
	}
	sort.Strings(names)

	for _, s := range names {
		if _, err := x.client.NewCancelOpenOrdersService().Symbol(s).Do(ctx); err != nil {
			wrapped := x.wrap(op, err)
			if exchange.KindOf(wrapped) == exchange.OrderNotFound {
				continue
			}
			return false, wrapped
		}
	}
	x.log.Info("cancelled all orders", "symbols", names, "count", len(open))
	return true, nil
}

func (x *Exchange) GetOrderInfo(ctx context.Context, oid string) (market.OrderInfo, error) {
	const op = "GetOrderInfo"
	if err := x.requireCreds(op); err != nil {
		return market.OrderInfo{}, err
	}
	symbol, n, err := splitOrderID(oid)
	if err != nil {
		return market.OrderInfo{}, exchange.Errorf(exchange.OrderNotFound, x.name, op, err, "bad order id")
	}

	o, err := x.client.NewGetOrderService().Symbol(symbol).OrderID(n).Do(ctx)
	if err != nil {
		return market.OrderInfo{}, x.wrap(op, err)
	}
	x.ok()

	info, err := toOrderInfo(o)
	if err != nil {
		return market.OrderInfo{}, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed order %s", oid)
	}
	return info, nil
}

func (x *Exchange) GetAllOpenOrders(ctx context.Context) ([]market.OrderInfo, error) {
	const op = "GetAllOpenOrders"
	if err := x.requireCreds(op); err != nil {
		return nil, err
	}

	open, err := x.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, x.wrap(op, err)
	}
	x.ok()

	out := make([]market.OrderInfo, 0, len(open))
	for _, o := range open {
		info, err := toOrderInfo(o)
		if err != nil {
			return nil, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "malformed order %d", o.OrderID)
		}
		out = append(out, info)
	}
	return out, nil
}

func (x *Exchange) Stop() error {
	x.stopOnce.Do(func() {
		x.status.Set(market.StatusStopping)
		x.http.CloseIdleConnections()
		x.log.Info("exchange stopped")
	})
	return nil
}
