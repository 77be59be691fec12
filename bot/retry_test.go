package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/exchange/exchangetest"
	"github.com/rustyeddy/exbot/pkg/backoff"
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name   string
		errs   []error
		calls  int
		delays []time.Duration
		kind   exchange.Kind
	}{
		{"first try", []error{nil}, 1, nil, exchange.KindUnknown},
		{"recovers", []error{exchangetest.NetErr("x"), nil}, 2, []time.Duration{time.Second}, exchange.KindUnknown},
		{"fatal not retried", []error{exchangetest.KindErr(exchange.InvalidParameters, "x")}, 1, nil, exchange.InvalidParameters},
		{"rejection not retried", []error{exchangetest.KindErr(exchange.RejectedByVenue, "x")}, 1, nil, exchange.RejectedByVenue},
		{"exhausted", []error{
			exchangetest.NetErr("x"), exchangetest.NetErr("x"), exchangetest.NetErr("x"), exchangetest.NetErr("x"),
		}, 4, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, exchange.NetworkUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var delays []time.Duration
			sleep := func(ctx context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}
			calls := 0
			err := retry(context.Background(), fastBackoff, sleep, quiet(), "op", func(context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})

			assert.Equal(t, tt.calls, calls)
			assert.Equal(t, tt.delays, delays)
			if tt.kind == exchange.KindUnknown {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.kind, exchange.KindOf(err))
			}
		})
	}
}

func TestRetryStopsWhenSleepInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, fastBackoff, func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}, quiet(), "op", func(context.Context) error {
		calls++
		return exchangetest.NetErr("op")
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRetryDisabled(t *testing.T) {
	calls := 0
	err := retry(context.Background(), backoff.Policy{Initial: time.Second, Max: time.Second, Multiplier: 2}, func(context.Context, time.Duration) error {
		t.Fatal("no sleep expected")
		return nil
	}, quiet(), "op", func(context.Context) error {
		calls++
		return exchangetest.NetErr("op")
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, exchange.NetworkUnavailable, exchange.KindOf(err))
	assert.ErrorContains(t, err, "gave up after 0 retries")
}
