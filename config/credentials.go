package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/exbot/exchange"
)

// EnvPrefix starts credential override variables, e.g. EXBOT_COINBASE_KEY.
const EnvPrefix = "EXBOT_"

// LoadCredentials reads a venue -> credentials map from a YAML or JSON file
// and applies environment overrides. An empty path yields only the
// environment values.
func LoadCredentials(path string) (exchange.CredentialStore, error) {
	store := exchange.CredentialStore{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		raw := map[string]exchange.Credentials{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			if err := json.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("parse credentials (tried YAML and JSON): %w", err)
			}
		}
		for venue, c := range raw {
			store[strings.ToLower(venue)] = c
		}
	}

	applyEnv(store, os.Environ())
	return store, nil
}

// applyEnv folds EXBOT_<VENUE>_KEY|SECRET|PASSWORD entries into store.
func applyEnv(store exchange.CredentialStore, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || value == "" {
			continue
		}
		rest := strings.TrimPrefix(name, EnvPrefix)
		i := strings.LastIndex(rest, "_")
		if i <= 0 {
			continue
		}
		venue, field := strings.ToLower(rest[:i]), rest[i+1:]

		c := store[venue]
		switch field {
		case "KEY":
			c.Key = value
		case "SECRET":
			c.Secret = value
		case "PASSWORD":
			c.Password = value
		default:
			continue
		}
		store[venue] = c
	}
}
