package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/exchange/exchangetest"
	"github.com/rustyeddy/exbot/exchange/paper"
	"github.com/rustyeddy/exbot/journal"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/backoff"
	"github.com/rustyeddy/exbot/risk"
)

const sym = "BTC-USD"

// scripted returns queued decisions in order, then WAIT.
type scripted struct {
	mu        sync.Mutex
	decisions []Decision
	snaps     []Snapshot
	err       error
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Decide(_ context.Context, snap Snapshot) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	if s.err != nil {
		return Decision{}, s.err
	}
	if len(s.decisions) == 0 {
		return WaitDecision("script done"), nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func (s *scripted) snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snaps...)
}

type memJournal struct {
	mu     sync.Mutex
	events []journal.OrderEvent
	prices []journal.PriceSample
}

func (j *memJournal) RecordTransition(e journal.OrderEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func (j *memJournal) RecordPrice(p journal.PriceSample) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.prices = append(j.prices, p)
	return nil
}

func (j *memJournal) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var fastBackoff = backoff.Policy{Initial: time.Second, Max: 8 * time.Second, Multiplier: 2, MaxRetries: 3}

// newBot returns a bot whose sleeps are recorded instead of taken.
func newBot(cfg Config, x exchange.Exchange, s Strategy, opts ...Option) (*Bot, *[]time.Duration) {
	if cfg.Symbol == "" {
		cfg.Symbol = sym
	}
	if cfg.Backoff == (backoff.Policy{}) {
		cfg.Backoff = fastBackoff
	}
	b := New(cfg, x, s, append([]Option{WithLogger(quiet())}, opts...)...)

	var mu sync.Mutex
	delays := &[]time.Duration{}
	b.sleep = func(ctx context.Context, d time.Duration) error {
		if d > 0 {
			mu.Lock()
			*delays = append(*delays, d)
			mu.Unlock()
		}
		return ctx.Err()
	}
	return b, delays
}

func TestRunMaxCycles(t *testing.T) {
	x := paper.New(exchange.Options{Symbols: []string{sym}, Logger: quiet()})
	s := &scripted{}
	j := &memJournal{}
	b, _ := newBot(Config{MaxCycles: 3}, x, s, WithJournal(j))

	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, market.StatusStopping, b.Status())
	assert.Equal(t, market.StatusStopping, x.Status())
	assert.Len(t, s.snapshots(), 3)
	assert.Len(t, j.prices, 4) // connect + three cycles

	st := b.State()
	assert.Equal(t, 3, st.Cycles)
	assert.Equal(t, "scripted", st.Strategy)
	assert.Equal(t, "paper", st.Exchange)
	assert.Empty(t, st.LastError)
}

func TestRunPlacesAndTracksOrders(t *testing.T) {
	x := paper.New(exchange.Options{Symbols: []string{sym}, Logger: quiet()})
	s := &scripted{decisions: []Decision{
		BuyDecision(95, 1, market.GTC, "dip"),
		WaitDecision(""),
	}}
	j := &memJournal{}
	b, _ := newBot(Config{MaxCycles: 2}, x, s, WithJournal(j))

	require.NoError(t, b.Run(context.Background()))

	snaps := s.snapshots()
	require.Len(t, snaps, 2)
	assert.Empty(t, snaps[0].OpenOrders)
	require.Len(t, snaps[1].OpenOrders, 1)
	assert.Equal(t, 95.0, snaps[1].OpenOrders[0].Info.Price)

	require.Len(t, j.events, 1)
	assert.Equal(t, "SUBMITTED", j.events[0].From)
	assert.Equal(t, "ACKNOWLEDGED", j.events[0].To)
	assert.Equal(t, sym, j.events[0].Symbol)
}

func TestRunRetriesNetworkErrors(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(0.0, exchangetest.NetErr("GetPrice")).Twice()
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("Stop").Return(nil).Once()

	b, delays := newBot(Config{MaxCycles: 1}, x, &scripted{})
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
	x.AssertNumberOfCalls(t, "GetPrice", 4)
	x.AssertNumberOfCalls(t, "Stop", 1)
}

func TestRunHaltsWhenRetriesExhausted(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(0.0, exchangetest.NetErr("GetPrice"))
	x.On("Stop").Return(nil).Once()

	b, delays := newBot(Config{}, x, &scripted{})
	err := b.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrNetworkUnavailable)
	assert.Equal(t, market.StatusError, b.Status())
	assert.Equal(t, err, b.LastError())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *delays)
	x.AssertNumberOfCalls(t, "GetPrice", 4)
	x.AssertNumberOfCalls(t, "Stop", 1)
}

func TestPlaceRetriesIdenticalRequest(t *testing.T) {
	req, err := market.NewLimitOrder(market.Buy, sym, 99, 0.5, market.IOC)
	require.NoError(t, err)

	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	var sent []market.NewOrderRequest
	same := mock.MatchedBy(func(r market.NewOrderRequest) bool { return r.WithClientOrderID("") == req })
	record := func(args mock.Arguments) { sent = append(sent, args.Get(1).(market.NewOrderRequest)) }
	x.On("PlaceLimitOrder", mock.Anything, same).Return("", exchangetest.NetErr("PlaceLimitOrder")).Run(record).Twice()
	x.On("PlaceLimitOrder", mock.Anything, same).Return("oid-1", nil).Run(record).Once()
	x.On("Stop").Return(nil)

	s := &scripted{decisions: []Decision{BuyDecision(99, 0.5, market.IOC, "")}}
	b, _ := newBot(Config{MaxCycles: 1}, x, s)
	require.NoError(t, b.Run(context.Background()))

	x.AssertNumberOfCalls(t, "PlaceLimitOrder", 3)
	orders := b.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "oid-1", orders[0].OrderID)

	require.Len(t, sent, 3)
	assert.NotEmpty(t, sent[0].ClientOrderID())
	assert.Equal(t, sent[0], sent[1])
	assert.Equal(t, sent[0], sent[2])
	assert.Equal(t, sent[0], orders[0].Request)
}

func TestRunHaltsOnAuthenticationFailure(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("PlaceLimitOrder", mock.Anything, mock.Anything).Return("", exchangetest.KindErr(exchange.AuthenticationFailed, "PlaceLimitOrder"))
	x.On("Stop").Return(nil).Once()

	s := &scripted{decisions: []Decision{BuyDecision(99, 1, market.GTC, "")}}
	b, delays := newBot(Config{}, x, s)
	err := b.Run(context.Background())

	assert.ErrorIs(t, err, exchange.ErrAuthenticationFailed)
	assert.Equal(t, market.StatusError, b.Status())
	assert.Empty(t, *delays)
	x.AssertNumberOfCalls(t, "PlaceLimitOrder", 1)
	x.AssertNumberOfCalls(t, "Stop", 1)
}

func TestRunHaltsOnUnknownSymbol(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(0.0, exchangetest.KindErr(exchange.UnknownSymbol, "GetPrice"))
	x.On("Stop").Return(nil).Once()

	b, _ := newBot(Config{}, x, &scripted{})
	err := b.Run(context.Background())
	assert.ErrorIs(t, err, exchange.ErrUnknownSymbol)
	assert.Equal(t, market.StatusError, b.State().Status)
	assert.NotEmpty(t, b.State().LastError)
}

func TestRejectionBecomesFeedback(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("PlaceLimitOrder", mock.Anything, mock.Anything).Return("", exchangetest.KindErr(exchange.RejectedByVenue, "PlaceLimitOrder")).Once()
	x.On("Stop").Return(nil)

	s := &scripted{decisions: []Decision{SellDecision(101, 1, market.GTC, "")}}
	b, _ := newBot(Config{MaxCycles: 3}, x, s)
	require.NoError(t, b.Run(context.Background()))

	snaps := s.snapshots()
	require.Len(t, snaps, 3)
	assert.Empty(t, snaps[0].Feedback)
	require.Len(t, snaps[1].Feedback, 1)
	assert.Equal(t, exchange.RejectedByVenue, snaps[1].Feedback[0].Kind)
	assert.Empty(t, snaps[2].Feedback)
	assert.Equal(t, market.StatusStopping, b.Status())
}

func TestCancelUnknownOrderBecomesFeedback(t *testing.T) {
	x := paper.New(exchange.Options{Symbols: []string{sym}, Logger: quiet()})
	s := &scripted{decisions: []Decision{CancelDecision("nope", "")}}
	b, _ := newBot(Config{MaxCycles: 2}, x, s)
	require.NoError(t, b.Run(context.Background()))

	snaps := s.snapshots()
	require.Len(t, snaps[1].Feedback, 1)
	assert.Equal(t, exchange.OrderNotFound, snaps[1].Feedback[0].Kind)
}

func TestRiskBlocksDecision(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("Stop").Return(nil)

	s := &scripted{decisions: []Decision{
		BuyDecision(100, 2, market.GTC, "too big"),
		BuyDecision(0, 1, market.GTC, "no price"),
	}}
	b, _ := newBot(Config{MaxCycles: 2, Risk: risk.Policy{MaxOrderSize: 1}}, x, s)
	require.NoError(t, b.Run(context.Background()))

	x.AssertNotCalled(t, "PlaceLimitOrder", mock.Anything, mock.Anything)
	assert.Empty(t, b.Orders())
}

func TestHistoryWindow(t *testing.T) {
	now := time.Date(2021, 1, 20, 16, 0, 0, 0, time.UTC)
	candles := []market.Candle{{Time: now.Add(-5 * time.Minute), Open: 1, High: 2, Low: 1, Close: 2}}

	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("GetPriceHistory", mock.Anything, sym, now.Add(-15*time.Minute), now, market.Interval5m).Return(candles, nil).Once()
	x.On("Stop").Return(nil)

	s := &scripted{}
	b, _ := newBot(Config{MaxCycles: 1, Interval: market.Interval5m, HistoryLookback: 3}, x, s,
		WithClock(func() time.Time { return now }))
	require.NoError(t, b.Run(context.Background()))

	x.AssertExpectations(t)
	assert.Equal(t, candles, s.snapshots()[0].Candles)
	assert.Equal(t, now, b.State().StartedAt)
}

func TestStrategyErrorHalts(t *testing.T) {
	x := paper.New(exchange.Options{Symbols: []string{sym}, Logger: quiet()})
	s := &scripted{err: errors.New("boom")}
	b, _ := newBot(Config{}, x, s)

	err := b.Run(context.Background())
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, market.StatusError, b.Status())
	assert.Equal(t, market.StatusStopping, x.Status())
}

func TestStopDuringNetworkCall(t *testing.T) {
	inflight := make(chan struct{})
	var once sync.Once

	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil).Once()
	x.On("GetPrice", mock.Anything, sym).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		once.Do(func() { close(inflight) })
		<-ctx.Done()
	}).Return(0.0, exchangetest.NetErr("GetPrice"))
	x.On("Stop").Return(nil).Once()

	b, _ := newBot(Config{}, x, &scripted{})

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	select {
	case <-inflight:
	case <-time.After(5 * time.Second):
		t.Fatal("no call in flight")
	}
	b.Stop()
	b.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, market.StatusStopping, b.Status())
	assert.Nil(t, b.LastError())
	x.AssertNumberOfCalls(t, "Stop", 1)
}

func TestStopBeforeRun(t *testing.T) {
	x := &exchangetest.Mock{}
	x.On("Stop").Return(nil).Once()

	b, _ := newBot(Config{}, x, &scripted{})
	b.Stop()
	require.NoError(t, b.Run(context.Background()))
	x.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
	x.AssertNumberOfCalls(t, "Stop", 1)
}

func TestAdoptOpenOrders(t *testing.T) {
	x := paper.New(exchange.Options{Symbols: []string{sym, "ETH-USD"}, Logger: quiet()})
	for _, s := range []string{sym, "ETH-USD"} {
		req, err := market.NewLimitOrder(market.Buy, s, 50, 1, market.GTC)
		require.NoError(t, err)
		_, err = x.PlaceLimitOrder(context.Background(), req)
		require.NoError(t, err)
	}

	s := &scripted{}
	b, _ := newBot(Config{MaxCycles: 1, AdoptOpenOrders: true}, x, s)
	require.NoError(t, b.Run(context.Background()))

	require.Len(t, s.snapshots()[0].OpenOrders, 1)
	assert.Equal(t, sym, s.snapshots()[0].OpenOrders[0].Info.Symbol)
}

func TestCancelDecisionRequest(t *testing.T) {
	d := CancelDecision("o-42", "stale")
	assert.Equal(t, Cancel, d.Action)
	assert.Equal(t, market.CancelRequest{OrderID: "o-42"}, d.CancelRequest())
}

func TestStateDuringOrderPlacement(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	x := &exchangetest.Mock{}
	x.On("GetPrice", mock.Anything, sym).Return(100.0, nil)
	x.On("PlaceLimitOrder", mock.Anything, mock.Anything).Return("oid-1", nil).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Once()
	x.On("Stop").Return(nil)

	s := &scripted{decisions: []Decision{BuyDecision(99, 0.5, market.GTC, "")}}
	b, _ := newBot(Config{MaxCycles: 1}, x, s)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()
	<-entered

	got := make(chan State, 1)
	go func() { got <- b.State() }()
	select {
	case st := <-got:
		assert.Equal(t, 1, st.OpenOrders)
		assert.Equal(t, market.StatusActive, st.Status)
	case <-time.After(time.Second):
		t.Fatal("State blocked on an order placement in flight")
	}

	close(release)
	require.NoError(t, <-done)
}
