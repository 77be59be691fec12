package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rustyeddy/exbot/exchange"
)

const maxBody = 4 << 20

// venueError is a well-formed error payload: the round trip completed but
// the venue said no.
type venueError struct {
	Status  int
	Message string
}

func (e *venueError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

type errorPayload struct {
	Message *string `json:"message"`
}

// authMessages are error texts Coinbase returns for bad credentials.
var authMessages = []string{
	"invalid api key",
	"invalid signature",
	"invalid passphrase",
	"invalid timestamp",
	"unauthorized",
}

func isAuthFailure(ve *venueError) bool {
	if ve.Status == http.StatusUnauthorized || ve.Status == http.StatusForbidden {
		return true
	}
	msg := strings.ToLower(ve.Message)
	for _, m := range authMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// response is a completed, successful round trip.
type response struct {
	body   []byte
	header http.Header
}

// do performs one request. It returns exactly one of:
//   - *exchange.Error (NetworkUnavailable) when the round trip did not
//     complete or the venue was unavailable (5xx, 429);
//   - *exchange.Error (AuthenticationFailed) for missing or rejected
//     credentials on a private call;
//   - *venueError when the venue answered with an error payload;
//   - a response on success.
func (x *Exchange) do(ctx context.Context, op, method, path string, query url.Values, body any, private bool) (response, error) {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return response{}, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "encode request")
		}
		payload = b
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return response{}, exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if private {
		if x.signer == nil {
			x.status.Set(statusError)
			return response{}, exchange.Errorf(exchange.AuthenticationFailed, x.name, op, x.authErr, "no usable credentials")
		}
		x.signer.Apply(req.Header, method, requestPath, string(payload))
	}

	resp, err := x.http.Do(req)
	if err != nil {
		return response{}, exchange.Errorf(exchange.NetworkUnavailable, x.name, op, err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{}, exchange.Errorf(exchange.NetworkUnavailable, x.name, op, err, "read response")
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return response{}, exchange.Errorf(exchange.NetworkUnavailable, x.name, op, nil,
			"venue unavailable (http %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if ve := decodeVenueError(resp.StatusCode, data); ve != nil {
		if isAuthFailure(ve) {
			x.status.Set(statusError)
			return response{}, exchange.Errorf(exchange.AuthenticationFailed, x.name, op, ve, "credentials rejected")
		}
		return response{}, ve
	}

	x.status.Set(statusActive)
	return response{body: data, header: resp.Header}, nil
}

// decodeVenueError returns a venueError for non-2xx answers and for 2xx
// bodies that carry only an error message.
func decodeVenueError(status int, data []byte) *venueError {
	var p errorPayload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		_ = json.Unmarshal(trimmed, &p)
	}

	if status >= 200 && status < 300 {
		if p.Message != nil {
			return &venueError{Status: status, Message: *p.Message}
		}
		return nil
	}

	msg := strings.TrimSpace(string(data))
	if p.Message != nil {
		msg = *p.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &venueError{Status: status, Message: msg}
}

// classify turns a do() error into an *exchange.Error, using kindOf to
// interpret venue error payloads for this operation.
func (x *Exchange) classify(op string, err error, kindOf func(*venueError) exchange.Kind) error {
	if ve, ok := err.(*venueError); ok {
		return exchange.Errorf(kindOf(ve), x.name, op, nil, "%s (http %d)", ve.Message, ve.Status)
	}
	return err
}

func decode(x *Exchange, op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return exchange.Errorf(exchange.InvalidParameters, x.name, op, err, "unexpected response shape")
	}
	return nil
}
