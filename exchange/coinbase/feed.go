package coinbase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/exbot/pkg/backoff"
)

type quote struct {
	price float64
	at    time.Time
}

type subscribeMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type tickerMsg struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
}

// TickerFeed keeps the latest trade price per product from the websocket
// ticker channel. It reconnects with backoff until closed.
type TickerFeed struct {
	url      string
	products []string
	log      *slog.Logger
	retry    backoff.Policy

	mu     sync.RWMutex
	quotes map[string]quote

	connMu sync.Mutex
	conn   *websocket.Conn

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	ReadTimeout time.Duration
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

func NewTickerFeed(url string, products []string, log *slog.Logger) *TickerFeed {
	if log == nil {
		log = slog.Default()
	}
	return &TickerFeed{
		url:         url,
		products:    append([]string(nil), products...),
		log:         log.With("component", "ticker_feed"),
		retry:       backoff.Default(),
		quotes:      make(map[string]quote),
		ReadTimeout: 60 * time.Second,
		now:         time.Now,
		sleep:       backoff.Sleep,
	}
}

// Start runs the connect/read loop in a goroutine.
func (f *TickerFeed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.run(ctx)
}

// Close stops the loop and waits for it to exit.
func (f *TickerFeed) Close() {
	f.once.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
		f.closeConn()
		f.wg.Wait()
	})
}

// Price returns the last streamed price for product if it is not older
// than maxAge.
func (f *TickerFeed) Price(product string, maxAge time.Duration) (float64, bool) {
	f.mu.RLock()
	q, ok := f.quotes[product]
	f.mu.RUnlock()
	if !ok || f.now().Sub(q.at) > maxAge {
		return 0, false
	}
	return q.price, true
}

// run waits out the backoff before every reconnect. The schedule starts
// over only after a connection delivered at least one message.
func (f *TickerFeed) run(ctx context.Context) {
	defer f.wg.Done()
	b := f.retry.Exponential()

	for ctx.Err() == nil {
		if err := f.connect(ctx); err != nil {
			f.log.Warn("feed connect failed", "err", err)
		} else if f.read(ctx) {
			b.Reset()
		}
		if ctx.Err() != nil {
			return
		}

		d := b.NextBackOff()
		f.log.Debug("feed reconnecting", "delay", d)
		if f.sleep(ctx, d) != nil {
			return
		}
	}
}

func (f *TickerFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("User-Agent", userAgent)

	conn, _, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}

	sub := subscribeMsg{Type: "subscribe", ProductIDs: f.products, Channels: []string{"ticker"}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	f.log.Info("feed connected", "products", f.products)
	return nil
}

// read consumes messages until the connection fails and reports whether
// any arrived.
func (f *TickerFeed) read(ctx context.Context) (received bool) {
	defer f.closeConn()

	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()
	if conn == nil {
		return false
	}

	for ctx.Err() == nil {
		if f.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn("feed read failed", "err", err)
			}
			return received
		}
		received = true
		f.handle(data)
	}
	return received
}

func (f *TickerFeed) handle(data []byte) {
	var msg tickerMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		f.log.Debug("feed message ignored", "err", err)
		return
	}

	switch msg.Type {
	case "ticker":
		p, err := parseNumber(msg.Price)
		if err != nil || p <= 0 {
			return
		}
		f.mu.Lock()
		f.quotes[msg.ProductID] = quote{price: p, at: f.now()}
		f.mu.Unlock()
	case "error":
		f.log.Error("feed error", "message", msg.Message, "reason", msg.Reason)
	}
}

func (f *TickerFeed) closeConn() {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
}
