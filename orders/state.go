package orders

import "errors"

var (
	// ErrTerminal is returned for any attempt to move an order out of
	// FILLED, CANCELLED or REJECTED.
	ErrTerminal = errors.New("order is in a terminal state")

	ErrInvalidTransition = errors.New("invalid order transition")
	ErrUnknownOrder      = errors.New("unknown order")
)

// State is the lifecycle state of a tracked order.
type State string

const (
	Submitted       State = "SUBMITTED"
	Acknowledged    State = "ACKNOWLEDGED"
	Rejected        State = "REJECTED"
	PartiallyFilled State = "PARTIALLY_FILLED"
	Filled          State = "FILLED"
	Cancelled       State = "CANCELLED"
)

var transitions = map[State][]State{
	Submitted:       {Acknowledged, Rejected},
	Acknowledged:    {PartiallyFilled, Filled, Cancelled},
	PartiallyFilled: {PartiallyFilled, Filled, Cancelled},
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
