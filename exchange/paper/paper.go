// Package paper is an in-memory venue. Limit orders fill against the last
// price set for their symbol; nothing leaves the process.
package paper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/id"
)

// SeedPrice is the starting price of every symbol named in Options.Symbols.
const SeedPrice = 100.0

type Exchange struct {
	mu      sync.Mutex
	log     *slog.Logger
	prices  map[string]float64
	candles map[string][]market.Candle
	orders  map[string]*market.OrderInfo
	placed  []string
	clients map[string]string // client order id -> order id

	failKind exchange.Kind
	failN    int

	status   market.StatusHolder
	stopOnce sync.Once
}

var _ exchange.Exchange = (*Exchange)(nil)

func New(opts exchange.Options) *Exchange {
	x := &Exchange{
		log:     opts.Log().With("exchange", "paper"),
		prices:  make(map[string]float64),
		candles: make(map[string][]market.Candle),
		orders:  make(map[string]*market.OrderInfo),
		clients: make(map[string]string),
	}
	for _, s := range opts.Symbols {
		x.prices[s] = SeedPrice
	}
	return x
}

func (x *Exchange) Name() string          { return "paper" }
func (x *Exchange) Status() market.Status { return x.status.Get() }

// SetPrice records the last traded price and fills resting orders that
// became marketable.
func (x *Exchange) SetPrice(symbol string, price float64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.prices[symbol] = price
	for _, oid := range x.placed {
		o := x.orders[oid]
		if o.Symbol == symbol && o.Active && marketable(o.Side, o.Price, price) {
			o.Fulfilled = o.Size
			o.Active = false
			x.log.Info("order filled", "order_id", oid, "price", price)
		}
	}
}

// SetCandles replaces the history served for symbol.
func (x *Exchange) SetCandles(symbol string, candles []market.Candle) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.candles[symbol] = market.SortCandles(append([]market.Candle(nil), candles...))
}

// FailNext makes the next n calls fail with kind.
func (x *Exchange) FailNext(kind exchange.Kind, n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.failKind, x.failN = kind, n
}

func marketable(side market.Side, limit, last float64) bool {
	if side == market.Buy {
		return limit >= last
	}
	return limit <= last
}

// enter runs the per-call bookkeeping shared by every contract method.
// x.mu must be held.
func (x *Exchange) enter(op string) error {
	if x.failN > 0 {
		x.failN--
		if x.failKind == exchange.AuthenticationFailed {
			x.status.Set(market.StatusError)
		}
		return exchange.Errorf(x.failKind, "paper", op, nil, "injected failure")
	}
	x.status.Set(market.StatusActive)
	return nil
}

func (x *Exchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("GetPrice"); err != nil {
		return 0, err
	}

	p, ok := x.prices[symbol]
	if !ok {
		return 0, exchange.Errorf(exchange.UnknownSymbol, "paper", "GetPrice", nil, "no price for %s", symbol)
	}
	x.log.Debug("price fetched", "symbol", symbol, "price", p)
	return p, nil
}

func (x *Exchange) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval market.Interval) ([]market.Candle, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("GetPriceHistory"); err != nil {
		return nil, err
	}

	all, ok := x.candles[symbol]
	if !ok {
		if _, priced := x.prices[symbol]; !priced {
			return nil, exchange.Errorf(exchange.UnknownSymbol, "paper", "GetPriceHistory", nil, "unknown symbol %s", symbol)
		}
	}

	out := make([]market.Candle, 0, len(all))
	for _, c := range all {
		if !start.IsZero() && c.Time.Before(start) {
			continue
		}
		if !end.IsZero() && c.Time.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (x *Exchange) PlaceLimitOrder(ctx context.Context, req market.NewOrderRequest) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("PlaceLimitOrder"); err != nil {
		return "", err
	}

	last, ok := x.prices[req.Symbol()]
	if !ok {
		return "", exchange.Errorf(exchange.UnknownSymbol, "paper", "PlaceLimitOrder", nil, "unknown symbol %s", req.Symbol())
	}

	cid := req.ClientOrderID()
	if oid, dup := x.clients[cid]; dup && cid != "" {
		x.log.Info("order already placed", "order_id", oid, "client_order_id", cid)
		return oid, nil
	}

	oid := id.New()
	info := req.Acknowledged(oid)
	switch {
	case marketable(req.Side(), req.Price(), last):
		info.Fulfilled = info.Size
		info.Active = false
	case req.TimeInForce() != market.GTC:
		info.Active = false
	}
	x.orders[oid] = &info
	x.placed = append(x.placed, oid)
	if cid != "" {
		x.clients[cid] = oid
	}

	x.log.Info("order placed", "order_id", oid, "order", req.String(), "filled", info.Fulfilled)
	return oid, nil
}

func (x *Exchange) CancelOrder(ctx context.Context, oid string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("CancelOrder"); err != nil {
		return false, err
	}

	o, ok := x.orders[oid]
	if !ok || !o.Active {
		return false, nil
	}
	o.Active = false
	return true, nil
}

func (x *Exchange) CancelAllOrders(ctx context.Context) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("CancelAllOrders"); err != nil {
		return false, err
	}

	for _, o := range x.orders {
		o.Active = false
	}
	return true, nil
}

func (x *Exchange) GetOrderInfo(ctx context.Context, oid string) (market.OrderInfo, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("GetOrderInfo"); err != nil {
		return market.OrderInfo{}, err
	}

	o, ok := x.orders[oid]
	if !ok {
		return market.OrderInfo{}, exchange.Errorf(exchange.OrderNotFound, "paper", "GetOrderInfo", nil, "order %s", oid)
	}
	return *o, nil
}

func (x *Exchange) GetAllOpenOrders(ctx context.Context) ([]market.OrderInfo, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.enter("GetAllOpenOrders"); err != nil {
		return nil, err
	}

	var out []market.OrderInfo
	for _, oid := range x.placed {
		if o := x.orders[oid]; o.Active {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (x *Exchange) Stop() error {
	x.stopOnce.Do(func() {
		x.status.Set(market.StatusStopping)
		x.log.Info("exchange stopped")
	})
	return nil
}
