package exchange

import (
	"errors"
	"strings"
)

var ErrMissingCredentials = errors.New("missing api credentials")

// Credentials authenticate privileged venue calls. The zero value is a
// valid, empty credential set; adapters report AuthenticationFailed the
// first time they need it.
type Credentials struct {
	Key      string `json:"key" yaml:"key"`
	Secret   string `json:"secret" yaml:"secret"`
	Password string `json:"password" yaml:"password"`
}

func (c Credentials) Empty() bool {
	return c.Key == "" || c.Secret == ""
}

// CredentialStore maps a venue name to its credentials.
type CredentialStore map[string]Credentials

// Lookup returns the credentials for venue, or the empty set.
func (s CredentialStore) Lookup(venue string) Credentials {
	if s == nil {
		return Credentials{}
	}
	if c, ok := s[venue]; ok {
		return c
	}
	return s[strings.ToLower(strings.TrimSpace(venue))]
}
