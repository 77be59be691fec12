package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/exbot/bot"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/risk"
)

// OpenOnce places a single resting buy below the first observed price and
// then waits.
type OpenOnce struct {
	Offset      float64 // fraction below the price, 0.01 = 1%
	Size        float64 // fixed size; when zero Budget is used
	Budget      float64 // quote currency to spend
	Step        float64 // lot step for budget sizing
	TimeInForce market.TimeInForce

	placed bool
}

func NewOpenOnce(p Params) (bot.Strategy, error) {
	s := &OpenOnce{}
	var err error
	if s.Offset, err = p.Float("offset", 0.01); err != nil {
		return nil, err
	}
	if s.Size, err = p.Float("size", 0); err != nil {
		return nil, err
	}
	if s.Budget, err = p.Float("budget", 0); err != nil {
		return nil, err
	}
	if s.Step, err = p.Float("step", 0); err != nil {
		return nil, err
	}
	tif, err := p.String("time_in_force", "GTC")
	if err != nil {
		return nil, err
	}
	s.TimeInForce = market.ParseTimeInForce(tif)

	if s.Offset < 0 || s.Offset >= 1 {
		return nil, fmt.Errorf("open-once: offset %g must be in [0, 1)", s.Offset)
	}
	if s.Size <= 0 && s.Budget <= 0 {
		return nil, fmt.Errorf("open-once: size or budget is required")
	}
	return s, nil
}

func (s *OpenOnce) Name() string { return "open-once" }

func (s *OpenOnce) Decide(_ context.Context, snap bot.Snapshot) (bot.Decision, error) {
	if s.placed {
		return bot.WaitDecision("already placed"), nil
	}

	price := snap.Price * (1 - s.Offset)
	size := s.Size
	if size <= 0 {
		size = risk.SizeForBudget(s.Budget, price, s.Step)
	}
	if size <= 0 {
		return bot.WaitDecision("budget too small"), nil
	}

	s.placed = true
	return bot.BuyDecision(price, size, s.TimeInForce, "open once"), nil
}
