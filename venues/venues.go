// Package venues registers every adapter shipped with exbot.
package venues

import (
	"github.com/rustyeddy/exbot/exchange"
	"github.com/rustyeddy/exbot/exchange/binance"
	"github.com/rustyeddy/exbot/exchange/coinbase"
	"github.com/rustyeddy/exbot/exchange/paper"
)

// Default returns a registry holding coinbase, coinbase_sandbox, binance,
// binance_testnet and paper.
func Default() *exchange.Registry {
	r := exchange.NewRegistry()
	r.Register("coinbase", func(c exchange.Credentials, o exchange.Options) (exchange.Exchange, error) {
		return coinbase.New(c, o)
	})
	r.Register("coinbase_sandbox", func(c exchange.Credentials, o exchange.Options) (exchange.Exchange, error) {
		return coinbase.NewSandbox(c, o)
	})
	r.Register("binance", func(c exchange.Credentials, o exchange.Options) (exchange.Exchange, error) {
		return binance.New(c, o)
	})
	r.Register("binance_testnet", func(c exchange.Credentials, o exchange.Options) (exchange.Exchange, error) {
		return binance.NewTestnet(c, o)
	})
	r.Register("paper", func(_ exchange.Credentials, o exchange.Options) (exchange.Exchange, error) {
		return paper.New(o), nil
	})
	return r
}
