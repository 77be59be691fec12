package backoff

import (
	"context"
	"testing"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

// schedule returns the first n delays of p's uncapped schedule.
func schedule(p Policy, n int) []time.Duration {
	b := p.Exponential()
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = b.NextBackOff()
	}
	return out
}

func TestExponential(t *testing.T) {
	got := schedule(Default(), 12)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
		60 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second,
	}, got)
}

func TestExponentialCustomShape(t *testing.T) {
	p := Policy{Initial: 10 * time.Millisecond, Max: 25 * time.Millisecond, Multiplier: 1.5, MaxRetries: 2}
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond, 15 * time.Millisecond, 22500 * time.Microsecond, 25 * time.Millisecond,
	}, schedule(p, 4))
}

func TestBackOffStopsAfterMaxRetries(t *testing.T) {
	p := Policy{Initial: 10 * time.Millisecond, Max: 25 * time.Millisecond, Multiplier: 1.5, MaxRetries: 2}
	b := p.BackOff(context.Background())

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 15*time.Millisecond, b.NextBackOff())
	assert.Equal(t, cbackoff.Stop, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

func TestBackOffStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := Default().BackOff(ctx)
	assert.Equal(t, time.Second, b.NextBackOff())

	cancel()
	assert.Equal(t, cbackoff.Stop, b.NextBackOff())
}

func TestZeroPolicyUsesDefaults(t *testing.T) {
	var p Policy
	got := schedule(p, 20)
	assert.Equal(t, time.Second, got[0])
	assert.Equal(t, 60*time.Second, got[19])
	assert.Equal(t, cbackoff.Stop, p.BackOff(context.Background()).NextBackOff())
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
