package market

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the granularity of a candle.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// Intervals lists every supported interval, finest first.
var Intervals = []Interval{Interval1m, Interval5m, Interval15m, Interval1h, Interval1d}

// ParseInterval converts a config string such as "15m" into an Interval.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Intervals {
		if iv == known {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q (want 1m|5m|15m|1h|1d)", s)
}

// Duration returns the length of one candle. Unknown intervals report one
// minute, matching the adapters' fallback.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

func (i Interval) String() string { return string(i) }

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Valid() bool { return s == Buy || s == Sell }

// TimeInForce is the expiry policy of an order.
type TimeInForce string

const (
	GTC TimeInForce = "GTC" // good till cancelled
	IOC TimeInForce = "IOC" // immediate or cancel
	FOK TimeInForce = "FOK" // fill or kill
)

// ParseTimeInForce maps a venue or config value to a TimeInForce. Anything
// unrecognised becomes FOK, the most conservative policy.
func ParseTimeInForce(s string) TimeInForce {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GTC":
		return GTC
	case "IOC":
		return IOC
	default:
		return FOK
	}
}
