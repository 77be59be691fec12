package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var got Credentials
	r.Register("Paper", func(c Credentials, _ Options) (Exchange, error) {
		got = c
		return nil, nil
	})

	assert.True(t, r.Has("paper"))
	assert.Equal(t, []string{"paper"}, r.Names())

	_, err := r.New(" PAPER ", Credentials{Key: "k"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "k", got.Key)

	_, err = r.New("kraken", Credentials{}, Options{})
	assert.ErrorIs(t, err, ErrUnknownAdapter)
	assert.Contains(t, err.Error(), "paper")
}

func TestCredentialStoreLookup(t *testing.T) {
	s := CredentialStore{"coinbase_sandbox": {Key: "k", Secret: "s", Password: "p"}}

	assert.Equal(t, "k", s.Lookup("coinbase_sandbox").Key)
	assert.Equal(t, "k", s.Lookup(" Coinbase_Sandbox ").Key)
	assert.True(t, s.Lookup("binance").Empty())

	var nilStore CredentialStore
	assert.True(t, nilStore.Lookup("anything").Empty())
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	assert.Equal(t, DefaultTimeout, o.HTTP().Timeout)
	assert.NotNil(t, o.Log())
}
