// Package config loads and validates simulator configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/replay"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/sim"
	"gopkg.in/yaml.v3"
)

// Config is the complete simulator configuration.
type Config struct {
	Session    SessionConfig       `json:"session" yaml:"session"`
	Indicators indicators.Settings `json:"indicators" yaml:"indicators"`
	Risk       risk.Policy         `json:"risk" yaml:"risk"`
	Journal    JournalConfig       `json:"journal" yaml:"journal"`
	Log        LogConfig           `json:"log" yaml:"log"`
	Server     ServerConfig        `json:"server" yaml:"server"`
}

// SessionConfig sets up the replay session.
type SessionConfig struct {
	Ticker          string  `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
	Speed           int     `json:"speed" yaml:"speed"` // ticks per second
}

// JournalConfig selects where closed trades and equity go.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	Addr              string  `json:"addr" yaml:"addr"`
	CommandsPerSecond float64 `json:"commands_per_second" yaml:"commands_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Session.StartingBalance <= 0 {
		return fmt.Errorf("session.starting_balance must be positive")
	}
	if c.Session.Speed < replay.MinSpeed || c.Session.Speed > replay.MaxSpeed {
		return fmt.Errorf("session.speed must be between %d and %d", replay.MinSpeed, replay.MaxSpeed)
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators.%w", err)
	}
	if c.Risk.DefaultRiskPct <= 0 || c.Risk.DefaultRiskPct > c.Risk.MaxRiskPct {
		return fmt.Errorf("risk.default_risk_pct must be positive and at most risk.max_risk_pct")
	}
	if c.Risk.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be at most 1")
	}
	if c.Risk.MinRR < 0 {
		return fmt.Errorf("risk.min_rr must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Server.CommandsPerSecond < 0 {
		return fmt.Errorf("server.commands_per_second must not be negative")
	}
	if c.Server.Burst < 0 {
		return fmt.Errorf("server.burst must not be negative")
	}
	return nil
}

// OpenJournal builds the configured journal. Type "none" or empty gives
// journal.Discard.
func (j JournalConfig) OpenJournal() (journal.Journal, error) {
	switch j.Type {
	case "", "none":
		return journal.Discard, nil
	case "csv":
		return journal.NewCSV(j.TradesFile, j.EquityFile)
	case "sqlite":
		return journal.NewSQLite(j.DBPath)
	}
	return nil, fmt.Errorf("unknown journal type %q", j.Type)
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			StartingBalance: sim.DefaultStartingBalance,
			Speed:           replay.DefaultSpeed,
		},
		Indicators: indicators.DefaultSettings(),
		Risk:       risk.DefaultPolicy(),
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			CommandsPerSecond: 20,
			Burst:             10,
		},
	}
}
