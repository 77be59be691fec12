package binance

import (
	"testing"

	bn "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/market"
)

func TestOrderIDRoundTrip(t *testing.T) {
	sym, n, err := splitOrderID(orderID("BTCUSDT", 991))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", sym)
	assert.Equal(t, int64(991), n)

	for _, bad := range []string{"", "42", ":42", "BTCUSDT:", "BTCUSDT:x"} {
		_, _, err := splitOrderID(bad)
		assert.Error(t, err, bad)
	}
}

func TestKindForCode(t *testing.T) {
	tests := map[int64]exchange.Kind{
		0:     exchange.NetworkUnavailable,
		-1001: exchange.NetworkUnavailable,
		-1022: exchange.AuthenticationFailed,
		-2015: exchange.AuthenticationFailed,
		-1121: exchange.UnknownSymbol,
		-2013: exchange.OrderNotFound,
		-1102: exchange.InvalidParameters,
		-1013: exchange.RejectedByVenue,
		-2010: exchange.RejectedByVenue,
		-9999: exchange.RejectedByVenue,
	}
	for code, kind := range tests {
		assert.Equal(t, kind, kindForCode(code), "code %d", code)
	}
}

func TestKlineInterval(t *testing.T) {
	for _, iv := range market.Intervals {
		_, ok := klineInterval(iv)
		assert.True(t, ok, iv)
	}
	s, ok := klineInterval("2h")
	assert.False(t, ok)
	assert.Equal(t, "1m", s)
}

func TestToOrderInfoClampsFilled(t *testing.T) {
	info, err := toOrderInfo(&bn.Order{
		Symbol:           "BTCUSDT",
		OrderID:          5,
		Price:            "10",
		OrigQuantity:     "1",
		ExecutedQuantity: "1.5",
		Status:           bn.OrderStatusTypeFilled,
		TimeInForce:      bn.TimeInForceTypeFOK,
		Side:             bn.SideTypeSell,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, info.Fulfilled)
	assert.False(t, info.Active)
	assert.Equal(t, market.Sell, info.Side)
	assert.Equal(t, market.FOK, info.TimeInForce)
	assert.NoError(t, info.Validate())
}

func TestTimeInForceType(t *testing.T) {
	assert.Equal(t, bn.TimeInForceTypeGTC, timeInForceType(market.GTC))
	assert.Equal(t, bn.TimeInForceTypeIOC, timeInForceType(market.IOC))
	assert.Equal(t, bn.TimeInForceTypeFOK, timeInForceType(market.FOK))
}
