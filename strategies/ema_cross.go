package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/exbot/bot"
	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
)

// EMACross buys when the fast EMA of candle closes crosses above the slow
// one and sells what it bought on the opposite cross. Resting orders are
// cancelled before acting on a new cross.
type EMACross struct {
	Fast        int
	Slow        int
	Size        float64
	Offset      float64 // limit distance from price, as a fraction
	TimeInForce market.TimeInForce

	lastCandle time.Time
	long       bool
	justBought bool
}

func NewEMACross(p Params) (bot.Strategy, error) {
	s := &EMACross{}
	var err error
	if s.Fast, err = p.Int("fast", 12); err != nil {
		return nil, err
	}
	if s.Slow, err = p.Int("slow", 26); err != nil {
		return nil, err
	}
	if s.Size, err = p.Float("size", 0); err != nil {
		return nil, err
	}
	if s.Offset, err = p.Float("offset", 0); err != nil {
		return nil, err
	}
	tif, err := p.String("time_in_force", "GTC")
	if err != nil {
		return nil, err
	}
	s.TimeInForce = market.ParseTimeInForce(tif)

	if s.Fast <= 0 || s.Slow <= s.Fast {
		return nil, fmt.Errorf("ema-cross: need 0 < fast < slow, got fast=%d slow=%d", s.Fast, s.Slow)
	}
	if s.Size <= 0 {
		return nil, fmt.Errorf("ema-cross: size must be positive")
	}
	return s, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

// MinCandles is the history needed to see a cross.
func (s *EMACross) MinCandles() int { return s.Slow + 1 }

func diff(closes []float64, fast, slow int) (float64, error) {
	f, err := EMA(closes, fast)
	if err != nil {
		return 0, err
	}
	sl, err := EMA(closes, slow)
	if err != nil {
		return 0, err
	}
	return f - sl, nil
}

func (s *EMACross) Decide(_ context.Context, snap bot.Snapshot) (bot.Decision, error) {
	// a rejected entry means we never went long
	if s.justBought {
		for _, fb := range snap.Feedback {
			if fb.Kind == exchange.RejectedByVenue {
				s.long = false
			}
		}
	}
	s.justBought = false

	if len(snap.Candles) < s.MinCandles() {
		return bot.WaitDecision("warming up"), nil
	}
	newest := snap.Candles[len(snap.Candles)-1].Time
	if !newest.After(s.lastCandle) {
		return bot.WaitDecision("no new candle"), nil
	}

	closes := market.Closes(snap.Candles)
	prev, err := diff(closes[:len(closes)-1], s.Fast, s.Slow)
	if err != nil {
		return bot.Decision{}, err
	}
	cur, err := diff(closes, s.Fast, s.Slow)
	if err != nil {
		return bot.Decision{}, err
	}

	bullCross := cur > 0 && prev <= 0
	bearCross := cur < 0 && prev >= 0 && s.long
	if !bullCross && !bearCross {
		s.lastCandle = newest
		return bot.WaitDecision("no cross"), nil
	}

	// clear stale orders first; the same candle is evaluated again next cycle
	if len(snap.OpenOrders) > 0 {
		return bot.CancelDecision(snap.OpenOrders[0].OrderID, "stale before cross"), nil
	}
	s.lastCandle = newest

	if bullCross {
		if s.long {
			return bot.WaitDecision("already long"), nil
		}
		s.long, s.justBought = true, true
		return bot.BuyDecision(snap.Price*(1-s.Offset), s.Size, s.TimeInForce, "bull cross"), nil
	}
	s.long = false
	return bot.SellDecision(snap.Price*(1+s.Offset), s.Size, s.TimeInForce, "bear cross"), nil
}
