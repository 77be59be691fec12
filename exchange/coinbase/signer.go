package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Signer produces Coinbase Exchange authentication headers. The API secret
// is stored base64 encoded and decoded once here; the HMAC key is the
// decoded bytes.
type Signer struct {
	key        string
	secret     []byte
	passphrase string
	now        func() time.Time
}

// NewSigner decodes secret and returns a signer. A secret that is not
// valid base64 is an authentication failure, not something to retry.
func NewSigner(key, secret, passphrase string) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	return &Signer{
		key:        key,
		secret:     raw,
		passphrase: passphrase,
		now:        time.Now,
	}, nil
}

// Sign returns base64(HMAC-SHA256(secret, timestamp+method+requestPath+body)).
// requestPath includes the query string.
func (s *Signer) Sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Apply sets the CB-ACCESS-* headers on h.
func (s *Signer) Apply(h http.Header, method, requestPath, body string) {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	h.Set("CB-ACCESS-KEY", s.key)
	h.Set("CB-ACCESS-SIGN", s.Sign(ts, method, requestPath, body))
	h.Set("CB-ACCESS-TIMESTAMP", ts)
	h.Set("CB-ACCESS-PASSPHRASE", s.passphrase)
}

// Wipe zeroes the decoded secret.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.secret {
		s.secret[i] = 0
	}
}
