package exchange

import (
	"errors"
	"fmt"
)

// Kind classifies an exchange failure.
type Kind int

const (
	KindUnknown Kind = iota
	// NetworkUnavailable: the request did not complete. Retryable.
	NetworkUnavailable
	// InvalidParameters: the venue rejected the shape of the request.
	InvalidParameters
	// RejectedByVenue: the request was understood but the order declined.
	RejectedByVenue
	// AuthenticationFailed: credentials missing or rejected.
	AuthenticationFailed
	// OrderNotFound: the venue has no record of the order.
	OrderNotFound
	// UnknownSymbol: the venue does not list the symbol.
	UnknownSymbol
)

func (k Kind) String() string {
	switch k {
	case NetworkUnavailable:
		return "NetworkUnavailable"
	case InvalidParameters:
		return "InvalidParameters"
	case RejectedByVenue:
		return "RejectedByVenue"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case OrderNotFound:
		return "OrderNotFound"
	case UnknownSymbol:
		return "UnknownSymbol"
	default:
		return "Unknown"
	}
}

// Retryable reports whether repeating the identical request may succeed.
func (k Kind) Retryable() bool { return k == NetworkUnavailable }

// Fatal reports whether the failure cannot heal without operator action.
func (k Kind) Fatal() bool {
	return k == AuthenticationFailed || k == UnknownSymbol || k == InvalidParameters
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNetworkUnavailable   = &Error{Kind: NetworkUnavailable}
	ErrInvalidParameters    = &Error{Kind: InvalidParameters}
	ErrRejectedByVenue      = &Error{Kind: RejectedByVenue}
	ErrAuthenticationFailed = &Error{Kind: AuthenticationFailed}
	ErrOrderNotFound        = &Error{Kind: OrderNotFound}
	ErrUnknownSymbol        = &Error{Kind: UnknownSymbol}
)

// Error is the failure type returned by every adapter.
type Error struct {
	Kind  Kind
	Venue string
	Op    string
	Msg   string
	Err   error
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, venue, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Venue: venue, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Venue != "" || e.Op != "" {
		s = fmt.Sprintf("%s %s: %s", e.Venue, e.Op, s)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Venue == "" && t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
