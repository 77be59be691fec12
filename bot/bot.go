// Package bot runs the polling loop that feeds market data to a strategy
// and turns its decisions into orders.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/journal"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/orders"
	"github.com/rustyeddy/exbot/pkg/backoff"
	"github.com/rustyeddy/exbot/pkg/id"
	"github.com/rustyeddy/exbot/risk"
)

type Config struct {
	Name         string
	Symbol       string
	PollInterval time.Duration

	// HistoryLookback candles of Interval are fetched every cycle; zero
	// skips history.
	Interval        market.Interval
	HistoryLookback int

	Backoff backoff.Policy
	Risk    risk.Policy

	// AdoptOpenOrders tracks orders already resting on the venue at start.
	AdoptOpenOrders bool

	// MaxCycles stops the bot after that many cycles; zero runs until
	// stopped.
	MaxCycles int
}

// State is a point-in-time view of a bot for status reporting.
type State struct {
	Name           string        `json:"name"`
	Strategy       string        `json:"strategy"`
	Exchange       string        `json:"exchange"`
	Symbol         string        `json:"symbol"`
	Status         market.Status `json:"status"`
	ExchangeStatus market.Status `json:"exchange_status"`
	LastError      string        `json:"last_error,omitempty"`
	Cycles         int           `json:"cycles"`
	OpenOrders     int           `json:"open_orders"`
	StartedAt      time.Time     `json:"started_at"`
}

type Option func(*Bot)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

// WithJournal records every order transition and fetched price.
func WithJournal(j journal.Journal) Option {
	return func(b *Bot) { b.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

type Bot struct {
	cfg     Config
	x       exchange.Exchange
	strat   Strategy
	orders  *orders.Manager
	journal journal.Journal
	log     *slog.Logger
	now     func() time.Time
	sleep   sleepFunc

	status   market.StatusHolder
	stopped  atomic.Bool
	stopOnce sync.Once

	mu        sync.Mutex
	cancel    context.CancelFunc
	lastErr   error
	cycles    int
	startedAt time.Time
	feedback  []orders.Feedback
}

func New(cfg Config, x exchange.Exchange, s Strategy, opts ...Option) *Bot {
	if cfg.Name == "" {
		cfg.Name = "exbot"
	}
	if cfg.Interval == "" {
		cfg.Interval = market.Interval1m
	}
	if cfg.Backoff == (backoff.Policy{}) {
		cfg.Backoff = backoff.Default()
	}

	b := &Bot{
		cfg:     cfg,
		x:       x,
		strat:   s,
		journal: journal.Nop{},
		log:     slog.Default(),
		now:     time.Now,
		sleep:   backoff.Sleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("bot", cfg.Name, "strategy", s.Name(), "exchange", x.Name(), "symbol", cfg.Symbol)
	b.orders = orders.NewManager(x, b.log, orders.ListenerFunc(b.onTransition))
	return b
}

func (b *Bot) onTransition(t orders.Transition) {
	err := b.journal.RecordTransition(journal.OrderEvent{
		Time:    t.At,
		Ref:     t.Ref,
		OrderID: t.OrderID,
		Symbol:  t.Info.Symbol,
		Side:    string(t.Info.Side),
		From:    string(t.From),
		To:      string(t.To),
		Price:   t.Info.Price,
		Size:    t.Info.Size,
		Filled:  t.Info.Fulfilled,
		Reason:  t.Reason,
	})
	if err != nil {
		b.log.Warn("journal write failed", "err", err)
	}
}

func (b *Bot) recordPrice(p float64) {
	err := b.journal.RecordPrice(journal.PriceSample{
		Time:     b.now(),
		Exchange: b.x.Name(),
		Symbol:   b.cfg.Symbol,
		Price:    p,
	})
	if err != nil {
		b.log.Warn("journal write failed", "err", err)
	}
}

func (b *Bot) Status() market.Status { return b.status.Get() }

// Orders returns every order the bot has tracked.
func (b *Bot) Orders() []orders.Order { return b.orders.Snapshot() }

func (b *Bot) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// State never waits on a venue call in flight.
func (b *Bot) State() State {
	open := len(b.orders.Open())

	b.mu.Lock()
	defer b.mu.Unlock()

	s := State{
		Name:           b.cfg.Name,
		Strategy:       b.strat.Name(),
		Exchange:       b.x.Name(),
		Symbol:         b.cfg.Symbol,
		Status:         b.status.Get(),
		ExchangeStatus: b.x.Status(),
		Cycles:         b.cycles,
		OpenOrders:     open,
		StartedAt:      b.startedAt,
	}
	if b.lastErr != nil {
		s.LastError = b.lastErr.Error()
	}
	return s
}

// Stop asks Run to return. It interrupts any in-flight venue call and is
// safe to call more than once and from any goroutine.
func (b *Bot) Stop() {
	b.stopped.Store(true)
	b.status.Set(market.StatusStopping)

	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (b *Bot) stopping(ctx context.Context) bool {
	return b.stopped.Load() || ctx.Err() != nil
}

func (b *Bot) stopExchange() {
	b.stopOnce.Do(func() {
		if err := b.x.Stop(); err != nil {
			b.log.Warn("exchange stop failed", "err", err)
		}
	})
}

func (b *Bot) shutdown() error {
	b.status.Set(market.StatusStopping)
	b.log.Info("bot stopped")
	return nil
}

func (b *Bot) halt(err error) error {
	b.status.Set(market.StatusError)
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
	b.log.Error("bot halted", "kind", exchange.KindOf(err).String(), "err", err)
	return err
}

func (b *Bot) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry(ctx, b.cfg.Backoff, b.sleep, b.log, op, fn)
}

// Run drives the bot until it is stopped, ctx ends, MaxCycles is reached
// or a fatal error occurs. The exchange is stopped exactly once on every
// exit path. A clean stop returns nil.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.stopExchange()

	b.mu.Lock()
	b.cancel = cancel
	b.startedAt = b.now()
	b.mu.Unlock()

	if b.stopping(ctx) {
		return b.shutdown()
	}

	b.log.Info("bot starting")
	if err := b.connect(ctx); err != nil {
		if b.stopping(ctx) {
			return b.shutdown()
		}
		return b.halt(err)
	}

	for n := 1; ; n++ {
		if b.stopping(ctx) {
			return b.shutdown()
		}
		if err := b.cycle(ctx); err != nil {
			if b.stopping(ctx) {
				return b.shutdown()
			}
			return b.halt(err)
		}
		if b.cfg.MaxCycles > 0 && n >= b.cfg.MaxCycles {
			return b.shutdown()
		}
		if err := b.sleep(ctx, b.cfg.PollInterval); err != nil {
			return b.shutdown()
		}
	}
}

// connect checks connectivity with a price fetch and optionally adopts
// resting orders.
func (b *Bot) connect(ctx context.Context) error {
	var price float64
	err := b.retry(ctx, "GetPrice", func(ctx context.Context) error {
		p, err := b.x.GetPrice(ctx, b.cfg.Symbol)
		price = p
		return err
	})
	if err != nil {
		return err
	}
	b.recordPrice(price)
	b.status.Set(market.StatusActive)
	b.log.Info("bot active", "price", price)

	if !b.cfg.AdoptOpenOrders {
		return nil
	}
	var open []market.OrderInfo
	err = b.retry(ctx, "GetAllOpenOrders", func(ctx context.Context) error {
		o, err := b.x.GetAllOpenOrders(ctx)
		open = o
		return err
	})
	if err != nil {
		return err
	}
	for _, info := range open {
		if info.Symbol != b.cfg.Symbol {
			continue
		}
		if _, err := b.orders.Adopt(info); err != nil {
			b.log.Warn("open order not adopted", "order_id", info.OrderID, "err", err)
		}
	}
	return nil
}

func (b *Bot) cycle(ctx context.Context) error {
	sym := b.cfg.Symbol

	var price float64
	err := b.retry(ctx, "GetPrice", func(ctx context.Context) error {
		p, err := b.x.GetPrice(ctx, sym)
		price = p
		return err
	})
	if err != nil {
		return err
	}
	b.recordPrice(price)

	var candles []market.Candle
	if b.cfg.HistoryLookback > 0 {
		end := b.now().UTC()
		start := end.Add(-time.Duration(b.cfg.HistoryLookback) * b.cfg.Interval.Duration())
		err := b.retry(ctx, "GetPriceHistory", func(ctx context.Context) error {
			c, err := b.x.GetPriceHistory(ctx, sym, start, end, b.cfg.Interval)
			candles = c
			return err
		})
		if err != nil {
			return err
		}
	}

	var fb []orders.Feedback
	err = b.retry(ctx, "Refresh", func(ctx context.Context) error {
		f, err := b.orders.Refresh(ctx)
		fb = append(fb, f...)
		return err
	})
	if err != nil {
		return err
	}

	snap := Snapshot{
		Time:       b.now(),
		Symbol:     sym,
		Price:      price,
		Candles:    candles,
		OpenOrders: b.orders.Open(),
		Feedback:   append(b.takeFeedback(), fb...),
	}

	d, err := b.strat.Decide(ctx, snap)
	if err != nil {
		return fmt.Errorf("strategy %s: %w", b.strat.Name(), err)
	}
	if err := b.dispatch(ctx, d, snap); err != nil {
		return err
	}

	b.mu.Lock()
	b.cycles++
	b.mu.Unlock()
	return nil
}

func (b *Bot) takeFeedback() []orders.Feedback {
	b.mu.Lock()
	defer b.mu.Unlock()
	fb := b.feedback
	b.feedback = nil
	return fb
}

func (b *Bot) addFeedback(f orders.Feedback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedback = append(b.feedback, f)
}

func (b *Bot) dispatch(ctx context.Context, d Decision, snap Snapshot) error {
	switch d.Action {
	case Wait, "":
		return nil

	case PlaceBuy, PlaceSell:
		side := market.Buy
		if d.Action == PlaceSell {
			side = market.Sell
		}
		tif := d.TimeInForce
		if tif == "" {
			tif = market.GTC
		}

		rd := risk.Evaluate(b.cfg.Risk, risk.Intent{Symbol: snap.Symbol, Side: side, Price: d.Price, Size: d.Size}, len(snap.OpenOrders))
		if !rd.Allowed {
			b.log.Warn("decision blocked by risk limits", "action", string(d.Action), "violations", rd.Codes())
			return nil
		}
		req, err := market.NewLimitOrder(side, snap.Symbol, d.Price, d.Size, tif)
		if err != nil {
			b.log.Warn("invalid decision", "action", string(d.Action), "err", err)
			return nil
		}

		ref := id.New()
		b.log.Info("placing order", "ref", ref, "order", req.String(), "reason", d.Reason)
		err = b.retry(ctx, "PlaceLimitOrder", func(ctx context.Context) error {
			_, err := b.orders.Place(ctx, ref, req)
			return err
		})
		return b.outcome(ref, "", err)

	case Cancel:
		cr := d.CancelRequest()
		b.log.Info("cancelling order", "order_id", cr.OrderID, "reason", d.Reason)
		err := b.retry(ctx, "CancelOrder", func(ctx context.Context) error {
			_, err := b.orders.Cancel(ctx, cr.OrderID)
			return err
		})
		return b.outcome("", cr.OrderID, err)

	default:
		b.log.Warn("unknown action ignored", "action", string(d.Action))
		return nil
	}
}

// outcome turns recoverable order failures into feedback and passes
// everything else up to halt the bot.
func (b *Bot) outcome(ref, orderID string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, orders.ErrUnknownOrder):
		b.addFeedback(orders.Feedback{Ref: ref, OrderID: orderID, Kind: exchange.OrderNotFound, Err: err})
		b.log.Warn("order action ignored", "order_id", orderID, "err", err)
		return nil
	case errors.Is(err, orders.ErrTerminal), errors.Is(err, orders.ErrInvalidTransition):
		b.addFeedback(orders.Feedback{Ref: ref, OrderID: orderID, Kind: exchange.KindUnknown, Err: err})
		b.log.Warn("order action ignored", "order_id", orderID, "err", err)
		return nil
	}

	switch kind := exchange.KindOf(err); kind {
	case exchange.RejectedByVenue, exchange.OrderNotFound:
		b.addFeedback(orders.Feedback{Ref: ref, OrderID: orderID, Kind: kind, Err: err})
		b.log.Warn("order action failed", "kind", kind.String(), "ref", ref, "order_id", orderID, "err", err)
		return nil
	default:
		return err
	}
}
