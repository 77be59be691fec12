package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/exbot/logging"
	"github.com/rustyeddy/exbot/market"
	"github.com/rustyeddy/exbot/pkg/backoff"
	"github.com/rustyeddy/exbot/risk"
)

// Config represents a complete bot run
type Config struct {
	Exchange            string         `json:"exchange" yaml:"exchange"`
	Strategy            string         `json:"strategy" yaml:"strategy"`
	Symbol              string         `json:"symbol" yaml:"symbol"`
	PollIntervalSeconds float64        `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	Interval            string         `json:"interval" yaml:"interval"`
	HistoryLookback     int            `json:"history_lookback" yaml:"history_lookback"`
	AdoptOpenOrders     bool           `json:"adopt_open_orders,omitempty" yaml:"adopt_open_orders,omitempty"`
	Backoff             BackoffConfig  `json:"backoff" yaml:"backoff"`
	Risk                risk.Policy    `json:"risk" yaml:"risk"`
	StrategyParams      map[string]any `json:"strategy_params,omitempty" yaml:"strategy_params,omitempty"`
	CredentialsFile     string         `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
	Venue               VenueConfig    `json:"venue,omitempty" yaml:"venue,omitempty"`
	Journal             JournalConfig  `json:"journal" yaml:"journal"`
	Log                 LogConfig      `json:"log" yaml:"log"`
	StatusAddr          string         `json:"status_addr,omitempty" yaml:"status_addr,omitempty"`
}

// BackoffConfig is the retry policy for network failures. Durations use
// Go syntax, e.g. "500ms" or "1m". Unset fields take the backoff.Default
// value; max_retries: 0 disables retries.
type BackoffConfig struct {
	Initial    string  `json:"initial,omitempty" yaml:"initial,omitempty"`
	Max        string  `json:"max,omitempty" yaml:"max,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MaxRetries *int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// VenueConfig overrides adapter transport settings.
type VenueConfig struct {
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	FeedURL        string  `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	UseFeed        bool    `json:"use_feed,omitempty" yaml:"use_feed,omitempty"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Policy converts the config to a backoff policy. Call Validate first.
func (b BackoffConfig) Policy() backoff.Policy {
	p := backoff.Default()
	if d, err := time.ParseDuration(b.Initial); err == nil && b.Initial != "" {
		p.Initial = d
	}
	if d, err := time.ParseDuration(b.Max); err == nil && b.Max != "" {
		p.Max = d
	}
	if b.Multiplier != 0 {
		p.Multiplier = b.Multiplier
	}
	if b.MaxRetries != nil {
		p.MaxRetries = *b.MaxRetries
	}
	return p
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Venue.TimeoutSeconds * float64(time.Second))
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. Adapter and strategy
// names are checked against the registries by the caller.
func (c *Config) Validate() error {
	if c.Exchange == "" {
		return fmt.Errorf("exchange is required")
	}
	if c.Strategy == "" {
		return fmt.Errorf("strategy is required")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if _, err := market.ParseInterval(c.Interval); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if c.HistoryLookback < 0 {
		return fmt.Errorf("history_lookback must not be negative")
	}
	if c.Venue.TimeoutSeconds < 0 {
		return fmt.Errorf("venue.timeout_seconds must not be negative")
	}

	for name, s := range map[string]string{"backoff.initial": c.Backoff.Initial, "backoff.max": c.Backoff.Max} {
		if s == "" {
			continue
		}
		if d, err := time.ParseDuration(s); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", name, s)
		}
	}
	if c.Backoff.Multiplier != 0 && c.Backoff.Multiplier < 1 {
		return fmt.Errorf("backoff.multiplier must be at least 1")
	}
	if c.Backoff.MaxRetries != nil && *c.Backoff.MaxRetries < 0 {
		return fmt.Errorf("backoff.max_retries must not be negative")
	}

	if c.Risk.MaxOrderSize < 0 || c.Risk.MaxNotional < 0 || c.Risk.MaxOpenOrders < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.EventsFile == "" {
			return fmt.Errorf("journal events_file required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Exchange:            "paper",
		Strategy:            "noop",
		Symbol:              "BTC-USD",
		PollIntervalSeconds: 5,
		Interval:            string(market.Interval1m),
		HistoryLookback:     0,
		Backoff: BackoffConfig{
			Initial:    "1s",
			Max:        "60s",
			Multiplier: 2,
			MaxRetries: retries(5),
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./exbot.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func retries(n int) *int { return &n }
