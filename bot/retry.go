package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/pkg/backoff"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepTimer drives cbackoff retries through a sleepFunc. Start blocks for
// the delay and fires C only when the sleep was not interrupted; an
// interrupted sleep leaves ctx done, which ends the retry loop.
type sleepTimer struct {
	ctx   context.Context
	sleep sleepFunc
	c     chan time.Time
}

func newSleepTimer(ctx context.Context, sleep sleepFunc) *sleepTimer {
	return &sleepTimer{ctx: ctx, sleep: sleep, c: make(chan time.Time, 1)}
}

func (t *sleepTimer) Start(d time.Duration) {
	if t.sleep(t.ctx, d) == nil {
		t.c <- time.Now()
	}
}

func (t *sleepTimer) Stop()               {}
func (t *sleepTimer) C() <-chan time.Time { return t.c }

// retry calls fn until it succeeds, fails with a non-retryable error, or
// the policy runs out of retries. fn must resend the identical request.
func retry(ctx context.Context, p backoff.Policy, sleep sleepFunc, log *slog.Logger, op string, fn func(context.Context) error) error {
	retries := 0
	operation := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !exchange.KindOf(err).Retryable() || ctx.Err() != nil {
			return cbackoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		retries++
		log.Warn("exchange error, retrying",
			"op", op,
			"kind", exchange.KindOf(err).String(),
			"attempt", retries,
			"delay", d,
			"err", err,
		)
	}

	err := cbackoff.RetryNotifyWithTimer(operation, p.BackOff(ctx), notify, newSleepTimer(ctx, sleep))
	if err != nil && ctx.Err() == nil && exchange.KindOf(err).Retryable() {
		return fmt.Errorf("%s: gave up after %d retries: %w", op, retries, err)
	}
	return err
}
