// Package config loads and validates the YAML service configuration.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalforge-lab/signalforge/internal/backtest"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var validate = validator.New()

// WatchTarget is one (symbol, interval) pair streamed by an agent.
type WatchTarget struct {
	Symbol   string         `yaml:"symbol" validate:"required"`
	Interval types.Interval `yaml:"interval" validate:"required"`
}

// MarketDataConfig selects and parameterizes the market-data provider.
type MarketDataConfig struct {
	// Provider is one of "binance", "polygon", or "duckdb".
	Provider string `yaml:"provider" validate:"required,oneof=binance polygon duckdb"`
	// APIKey is the credential for providers that need one.
	APIKey string `yaml:"api_key"`
	// DataPath points the duckdb provider at a parquet or CSV file.
	DataPath string `yaml:"data_path"`
}

// SchedulerConfig tunes the evaluation loop.
type SchedulerConfig struct {
	Cadence time.Duration `yaml:"cadence"`
}

// APIConfig tunes the status HTTP server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Config is the root service configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	BufferSize int              `yaml:"buffer_size" validate:"omitempty,gt=0"`
	Watch      []WatchTarget    `yaml:"watch" validate:"dive"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	API        APIConfig        `yaml:"api"`
	Backtest   backtest.Config  `yaml:"backtest"`
	// SignalDBPath is the DuckDB file holding signal definitions. Empty
	// selects the in-memory store.
	SignalDBPath string `yaml:"signal_db_path"`
}

// Default returns a runnable configuration with in-memory persistence.
func Default() Config {
	return Config{
		LogLevel:   "info",
		BufferSize: 500,
		MarketData: MarketDataConfig{Provider: "binance"},
		Scheduler:  SchedulerConfig{Cadence: 30 * time.Second},
		API:        APIConfig{Enabled: true, Address: ":8089"},
		Backtest:   backtest.DefaultConfig(),
	}
}

// Load reads and validates the configuration file. Missing optional fields
// fall back to defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(raw)
}

// Parse decodes a YAML document over the defaults and validates the result.
func Parse(raw []byte) (Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	for _, target := range c.Watch {
		if !target.Interval.Valid() {
			return errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q for %s", target.Interval, target.Symbol)
		}
	}

	if c.MarketData.Provider == "duckdb" && c.MarketData.DataPath == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "duckdb provider requires data_path")
	}

	if c.MarketData.Provider == "polygon" && c.MarketData.APIKey == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires api_key")
	}

	return c.Backtest.Validate()
}
