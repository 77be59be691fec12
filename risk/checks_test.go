package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/exbot/market"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	p := Policy{MaxOrderSize: 1, MaxNotional: 500, MaxOpenOrders: 2}
	tests := []struct {
		name   string
		intent Intent
		open   int
		codes  []string
	}{
		{"allowed", Intent{Side: market.Buy, Price: 100, Size: 1}, 1, []string{}},
		{"zero size", Intent{Price: 100}, 0, []string{"NON_POSITIVE"}},
		{"negative price", Intent{Price: -1, Size: 1}, 0, []string{"NON_POSITIVE"}},
		{"too large", Intent{Price: 100, Size: 2}, 0, []string{"SIZE_TOO_LARGE"}},
		{"notional", Intent{Price: 600, Size: 1}, 0, []string{"NOTIONAL_TOO_LARGE"}},
		{"open orders", Intent{Price: 10, Size: 1}, 2, []string{"TOO_MANY_OPEN_ORDERS"}},
		{"several", Intent{Price: 1000, Size: 5}, 3, []string{"SIZE_TOO_LARGE", "NOTIONAL_TOO_LARGE", "TOO_MANY_OPEN_ORDERS"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Evaluate(p, tt.intent, tt.open)
			assert.Equal(t, len(tt.codes) == 0, d.Allowed)
			assert.Equal(t, tt.codes, d.Codes())
		})
	}
}

func TestEvaluateZeroPolicyAllowsAll(t *testing.T) {
	t.Parallel()
	d := Evaluate(Policy{}, Intent{Price: 1e9, Size: 1e9}, 1000)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Violations)
}

func TestSizeForBudget(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.3, SizeForBudget(30, 100, 0.1), 1e-12)
	assert.InDelta(t, 0.25, SizeForBudget(25, 100, 0), 1e-12)
	assert.InDelta(t, 0.001, SizeForBudget(31234.56, 31234560, 0.001), 1e-12)
	assert.Zero(t, SizeForBudget(0, 100, 0.1))
	assert.Zero(t, SizeForBudget(10, 0, 0.1))
	assert.Zero(t, SizeForBudget(5, 100, 0.1))
}
