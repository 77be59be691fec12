package venues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/exbot/exchange"
)

func TestDefault(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"binance", "binance_testnet", "coinbase", "coinbase_sandbox", "paper"}, r.Names())

	for _, name := range r.Names() {
		x, err := r.New(name, exchange.Credentials{}, exchange.Options{})
		require.NoError(t, err, name)
		assert.Equal(t, name, x.Name())
		require.NoError(t, x.Stop())
	}

	_, err := r.New("kraken", exchange.Credentials{}, exchange.Options{})
	assert.ErrorIs(t, err, exchange.ErrUnknownAdapter)
}
