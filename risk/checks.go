package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes lists the violation codes of d.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

func Evaluate(p Policy, intent Intent, openOrders int) Decision {
	d := Decision{Allowed: true}

	// Basic sanity
	if intent.Price <= 0 || intent.Size <= 0 {
		d.add("NON_POSITIVE", "price and size must be positive")
		return d
	}

	if p.MaxOrderSize > 0 && intent.Size > p.MaxOrderSize {
		d.add("SIZE_TOO_LARGE",
			fmt.Sprintf("size %g exceeds max %g", intent.Size, p.MaxOrderSize))
	}
	if p.MaxNotional > 0 && intent.Notional() > p.MaxNotional {
		d.add("NOTIONAL_TOO_LARGE",
			fmt.Sprintf("notional %.2f exceeds max %.2f", intent.Notional(), p.MaxNotional))
	}

	// Exposure constraints
	if p.MaxOpenOrders > 0 && openOrders >= p.MaxOpenOrders {
		d.add("TOO_MANY_OPEN_ORDERS",
			fmt.Sprintf("open orders %d >= max %d", openOrders, p.MaxOpenOrders))
	}

	return d
}
