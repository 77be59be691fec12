package strategies

import (
	"context"

	"github.com/rustyeddy/exbot/bot"
)

// Noop never trades.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Decide(context.Context, bot.Snapshot) (bot.Decision, error) {
	return bot.WaitDecision("noop"), nil
}
