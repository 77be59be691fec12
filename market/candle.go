package market

import (
	"math"
	"sort"
	"time"
)

// Candle represents OHLCV (Open, High, Low, Close, Volume) data for one
// interval, keyed by the UTC time the interval opened.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether the candle satisfies Low <= min(Open, Close) and
// High >= max(Open, Close).
func (c Candle) Valid() bool {
	lo := math.Min(c.Open, c.Close)
	hi := math.Max(c.Open, c.Close)
	return c.Low <= lo && hi <= c.High && c.Volume >= 0
}

// SortCandles orders candles by ascending time and drops repeated
// timestamps, keeping the first occurrence. The input slice is reused.
func SortCandles(candles []Candle) []Candle {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	out := candles[:0]
	for i, c := range candles {
		if i > 0 && c.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Closes returns the close price of every candle, in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
