package risk

import "math"

// SizeForBudget returns how much base currency budget buys at price,
// floored to a multiple of step. A non-positive step disables rounding.
func SizeForBudget(budget, price, step float64) float64 {
	if budget <= 0 || price <= 0 {
		return 0
	}
	size := budget / price
	if step <= 0 {
		return size
	}
	// nudge before flooring so 0.3/0.1 style quotients land on the step
	return math.Floor(size/step+1e-9) * step
}
