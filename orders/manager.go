// Package orders tracks the lifecycle of every order the bot places and
// keeps the authoritative OrderInfo for each.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/id"
)

// Order is a snapshot of a tracked order.
type Order struct {
	Ref     string
	OrderID string
	Request market.NewOrderRequest
	State   State
	Info    market.OrderInfo
	Created time.Time
	Updated time.Time
}

// Transition describes one applied state change.
type Transition struct {
	Ref     string
	OrderID string
	From    State
	To      State
	Info    market.OrderInfo
	Reason  string
	At      time.Time
}

// Listener receives every applied transition. It is called without any
// manager lock held.
type Listener interface {
	OnTransition(Transition)
}

type ListenerFunc func(Transition)

func (f ListenerFunc) OnTransition(t Transition) { f(t) }

// Feedback reports a venue outcome the strategy should hear about on its
// next cycle.
type Feedback struct {
	Ref     string
	OrderID string
	Kind    exchange.Kind
	Err     error
}

type entry struct {
	mu    sync.Mutex
	order Order

	// view is the order as of the last unlock. Readers use it so they never
	// wait on a venue round trip made under mu.
	view atomic.Pointer[Order]
}

// unlock publishes e.order and releases e.mu.
func (e *entry) unlock() {
	o := e.order
	e.view.Store(&o)
	e.mu.Unlock()
}

func (e *entry) snapshot() Order { return *e.view.Load() }

var clientOrderNamespace = uuid.MustParse("8d3f6a52-1c4b-4e0a-9f27-5b6c0d9e3a14")

// ClientOrderID is the venue client id sent for ref. It is a name-based
// UUID, so every resend of ref carries the same id.
func ClientOrderID(ref string) string {
	return uuid.NewSHA1(clientOrderNamespace, []byte(ref)).String()
}

// Manager owns tracked orders. Transitions of one order are serialized by
// that order's lock; different orders update concurrently.
type Manager struct {
	x        exchange.Exchange
	log      *slog.Logger
	listener Listener
	now      func() time.Time

	mu    sync.RWMutex
	byRef map[string]*entry
	byID  map[string]*entry
	refs  []string
}

func NewManager(x exchange.Exchange, log *slog.Logger, l Listener) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		x:        x,
		log:      log,
		listener: l,
		now:      time.Now,
		byRef:    make(map[string]*entry),
		byID:     make(map[string]*entry),
	}
}

func (m *Manager) emit(ts []Transition) {
	if m.listener == nil {
		return
	}
	for _, t := range ts {
		m.listener.OnTransition(t)
	}
}

// apply moves e to the next state. e.mu must be held.
func (m *Manager) apply(e *entry, to State, info market.OrderInfo, reason string) (Transition, error) {
	o := &e.order
	from := o.State
	if from.Terminal() {
		m.log.Warn("transition from terminal state ignored", "ref", o.Ref, "order_id", o.OrderID, "from", from, "to", to)
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrTerminal, from, to)
	}
	if !CanTransition(from, to) {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := m.now()
	o.State = to
	o.Info = info
	o.Updated = now

	t := Transition{Ref: o.Ref, OrderID: o.OrderID, From: from, To: to, Info: info, Reason: reason, At: now}
	m.log.Info("order transition",
		"ref", t.Ref,
		"order_id", t.OrderID,
		"from", from,
		"to", to,
		"filled", info.Fulfilled,
		"size", info.Size,
		"reason", reason,
	)
	return t, nil
}

func (m *Manager) lookup(key string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.byID[key]; ok {
		return e, true
	}
	e, ok := m.byRef[key]
	return e, ok
}

func (m *Manager) track(ref string, req market.NewOrderRequest) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byRef[ref]; ok {
		return e
	}
	if req.ClientOrderID() == "" {
		req = req.WithClientOrderID(ClientOrderID(ref))
	}
	now := m.now()
	e := &entry{order: Order{Ref: ref, Request: req, State: Submitted, Created: now, Updated: now}}
	e.view.Store(&Order{Ref: ref, Request: req, State: Submitted, Created: now, Updated: now})
	m.byRef[ref] = e
	m.refs = append(m.refs, ref)
	return e
}

// Place submits req under the local reference ref, generating one when
// empty. Calling Place again with the same ref while the order is still
// SUBMITTED resends the original request unchanged, including the client
// order id derived from ref.
//
// A NetworkUnavailable failure leaves the order SUBMITTED; any other venue
// error rejects it.
func (m *Manager) Place(ctx context.Context, ref string, req market.NewOrderRequest) (Order, error) {
	if ref == "" {
		ref = id.New()
	}
	e := m.track(ref, req)

	var ts []Transition
	defer func() { m.emit(ts) }()
	e.mu.Lock()
	defer e.unlock()

	if e.order.State != Submitted {
		return e.order, fmt.Errorf("%w: order %s already %s", ErrInvalidTransition, ref, e.order.State)
	}

	oid, err := m.x.PlaceLimitOrder(ctx, e.order.Request)
	if err != nil {
		kind := exchange.KindOf(err)
		if kind.Retryable() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.log.Warn("order placement not confirmed", "ref", ref, "kind", kind.String(), "err", err)
			return e.order, err
		}
		info := e.order.Request.Acknowledged("")
		info.Active = false
		if t, aerr := m.apply(e, Rejected, info, kind.String()); aerr == nil {
			ts = append(ts, t)
		}
		return e.order, err
	}

	e.order.OrderID = oid
	m.mu.Lock()
	m.byID[oid] = e
	m.mu.Unlock()

	t, err := m.apply(e, Acknowledged, e.order.Request.Acknowledged(oid), "acknowledged")
	if err != nil {
		return e.order, err
	}
	ts = append(ts, t)
	return e.order, nil
}

// target maps a polled OrderInfo to the state it implies.
func target(info market.OrderInfo) State {
	switch {
	case info.Filled():
		return Filled
	case !info.Active:
		return Cancelled
	case info.Fulfilled > 0:
		return PartiallyFilled
	default:
		return Acknowledged
	}
}

// observe applies a polled OrderInfo. e.mu must be held.
func (m *Manager) observe(e *entry, info market.OrderInfo) (Transition, bool, error) {
	o := &e.order
	if o.State.Terminal() {
		m.log.Warn("update for terminal order ignored", "ref", o.Ref, "order_id", o.OrderID, "state", o.State)
		return Transition{}, false, fmt.Errorf("%w: %s", ErrTerminal, o.State)
	}
	if err := info.Validate(); err != nil {
		return Transition{}, false, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if info.Fulfilled < o.Info.Fulfilled {
		return Transition{}, false, fmt.Errorf("%w: fill went from %g to %g", ErrInvalidTransition, o.Info.Fulfilled, info.Fulfilled)
	}

	to := target(info)
	if to == o.State && (to != PartiallyFilled || info.Fulfilled == o.Info.Fulfilled) {
		o.Info = info
		return Transition{}, false, nil
	}
	t, err := m.apply(e, to, info, "observed")
	if err != nil {
		return Transition{}, false, err
	}
	return t, true, nil
}

// Observe applies info to the order it names.
func (m *Manager) Observe(info market.OrderInfo) (Order, error) {
	e, ok := m.lookup(info.OrderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, info.OrderID)
	}

	var ts []Transition
	defer func() { m.emit(ts) }()
	e.mu.Lock()
	defer e.unlock()

	t, changed, err := m.observe(e, info)
	if changed {
		ts = append(ts, t)
	}
	return e.order, err
}

// Adopt starts tracking an order that was already open on the venue.
func (m *Manager) Adopt(info market.OrderInfo) (Order, error) {
	if e, ok := m.lookup(info.OrderID); ok {
		return e.snapshot(), nil
	}
	req, err := market.NewLimitOrder(info.Side, info.Symbol, info.Price, info.Size, info.TimeInForce)
	if err != nil {
		return Order{}, err
	}
	if err := info.Validate(); err != nil {
		return Order{}, err
	}

	state := target(info)
	if state.Terminal() {
		return Order{}, fmt.Errorf("%w: %s is not open", ErrInvalidTransition, info.OrderID)
	}

	e := m.track(id.New(), req)
	e.mu.Lock()
	defer e.unlock()
	e.order.OrderID = info.OrderID
	e.order.State = state
	e.order.Info = info

	m.mu.Lock()
	m.byID[info.OrderID] = e
	m.mu.Unlock()

	m.log.Info("order adopted", "ref", e.order.Ref, "order_id", info.OrderID, "state", state)
	return e.order, nil
}

// Cancel cancels orderID. When the venue had nothing to cancel the order is
// refreshed to learn its real terminal state.
func (m *Manager) Cancel(ctx context.Context, orderID string) (Order, error) {
	e, ok := m.lookup(orderID)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}

	var ts []Transition
	defer func() { m.emit(ts) }()
	e.mu.Lock()
	defer e.unlock()

	if e.order.State.Terminal() {
		m.log.Warn("cancel of terminal order ignored", "order_id", orderID, "state", e.order.State)
		return e.order, fmt.Errorf("%w: %s", ErrTerminal, e.order.State)
	}
	if e.order.OrderID == "" {
		return e.order, fmt.Errorf("%w: %s not acknowledged", ErrInvalidTransition, e.order.Ref)
	}

	cancelled, err := m.x.CancelOrder(ctx, e.order.OrderID)
	if err != nil {
		return e.order, err
	}
	if cancelled {
		info := e.order.Info
		info.Active = false
		t, err := m.apply(e, Cancelled, info, "cancelled")
		if err == nil {
			ts = append(ts, t)
		}
		return e.order, err
	}

	info, err := m.x.GetOrderInfo(ctx, e.order.OrderID)
	if err != nil {
		return e.order, err
	}
	t, changed, err := m.observe(e, info)
	if changed {
		ts = append(ts, t)
	}
	return e.order, err
}

// CancelAll cancels every open order on the venue, then refreshes tracked
// orders so their local state matches.
func (m *Manager) CancelAll(ctx context.Context) (bool, error) {
	ok, err := m.x.CancelAllOrders(ctx)
	if err != nil || !ok {
		return ok, err
	}
	_, err = m.Refresh(ctx)
	return ok, err
}

// Refresh polls every acknowledged, non-terminal order. Orders the venue no
// longer knows are dropped and reported as feedback.
func (m *Manager) Refresh(ctx context.Context) ([]Feedback, error) {
	var feedback []Feedback
	for _, e := range m.pending() {
		fb, err := m.refresh(ctx, e)
		if fb != nil {
			feedback = append(feedback, *fb)
		}
		if err != nil {
			return feedback, err
		}
	}
	return feedback, nil
}

func (m *Manager) refresh(ctx context.Context, e *entry) (*Feedback, error) {
	var ts []Transition
	defer func() { m.emit(ts) }()
	e.mu.Lock()
	defer e.unlock()

	if e.order.State.Terminal() || e.order.OrderID == "" {
		return nil, nil
	}

	info, err := m.x.GetOrderInfo(ctx, e.order.OrderID)
	if err != nil {
		if exchange.KindOf(err) == exchange.OrderNotFound {
			m.forget(e.order)
			m.log.Warn("order unknown to venue, dropped", "ref", e.order.Ref, "order_id", e.order.OrderID)
			return &Feedback{Ref: e.order.Ref, OrderID: e.order.OrderID, Kind: exchange.OrderNotFound, Err: err}, nil
		}
		return nil, err
	}

	t, changed, err := m.observe(e, info)
	if changed {
		ts = append(ts, t)
	}
	if err != nil {
		m.log.Warn("order update rejected", "order_id", e.order.OrderID, "err", err)
	}
	return nil, nil
}

func (m *Manager) forget(o Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byRef, o.Ref)
	delete(m.byID, o.OrderID)
	for i, r := range m.refs {
		if r == o.Ref {
			m.refs = append(m.refs[:i], m.refs[i+1:]...)
			break
		}
	}
}

func (m *Manager) entries() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entry, 0, len(m.refs))
	for _, r := range m.refs {
		out = append(out, m.byRef[r])
	}
	return out
}

func (m *Manager) pending() []*entry {
	var out []*entry
	for _, e := range m.entries() {
		o := e.snapshot()
		if !o.State.Terminal() && o.OrderID != "" {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the order with the given venue id or local reference.
func (m *Manager) Get(key string) (Order, bool) {
	e, ok := m.lookup(key)
	if !ok {
		return Order{}, false
	}
	return e.snapshot(), true
}

// Open returns non-terminal orders in placement order.
func (m *Manager) Open() []Order {
	var out []Order
	for _, o := range m.Snapshot() {
		if !o.State.Terminal() {
			out = append(out, o)
		}
	}
	return out
}

// Snapshot returns every tracked order in placement order. It does not
// wait for venue calls in flight; those orders show their state from
// before the call.
func (m *Manager) Snapshot() []Order {
	es := m.entries()
	out := make([]Order, 0, len(es))
	for _, e := range es {
		out = append(out, e.snapshot())
	}
	return out
}
