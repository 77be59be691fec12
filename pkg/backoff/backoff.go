// Package backoff turns the configured retry shape into cenkalti/backoff
// schedules.
package backoff

import (
	"context"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Policy describes the retry shape: Initial * Multiplier^attempt, capped at
// Max, for at most MaxRetries retries after the first attempt.
type Policy struct {
	Initial    time.Duration `json:"initial" yaml:"initial"`
	Max        time.Duration `json:"max" yaml:"max"`
	Multiplier float64       `json:"multiplier" yaml:"multiplier"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
}

// Default is 1s doubling up to 60s, five retries.
func Default() Policy {
	return Policy{
		Initial:    time.Second,
		Max:        60 * time.Second,
		Multiplier: 2,
		MaxRetries: 5,
	}
}

func (p Policy) normalized() Policy {
	d := Default()
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// Exponential returns the unjittered schedule with no retry cap and no
// elapsed-time limit.
func (p Policy) Exponential() *cbackoff.ExponentialBackOff {
	p = p.normalized()
	b := cbackoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// BackOff returns the schedule capped at MaxRetries. It reports
// cbackoff.Stop once the retries are used up or ctx is done.
func (p Policy) BackOff(ctx context.Context) cbackoff.BackOffContext {
	p = p.normalized()
	return cbackoff.WithContext(cbackoff.WithMaxRetries(p.Exponential(), uint64(p.MaxRetries)), ctx)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
