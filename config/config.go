package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tradient   TradientConfig   `yaml:"tradient"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Exchanges  ExchangesConfig  `yaml:"exchanges"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Fees       FeesConfig       `yaml:"fees"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cloudwatch CloudwatchConfig `yaml:"cloudwatch"`
}

type TradientConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	EventBuffer       int `yaml:"event_buffer"`
	OpportunityBuffer int `yaml:"opportunity_buffer"`
}

type ExchangesConfig struct {
	Binance  ExchangeConfig `yaml:"binance"`
	Coinbase ExchangeConfig `yaml:"coinbase"`
	Kraken   ExchangeConfig `yaml:"kraken"`
	Okx      ExchangeConfig `yaml:"okx"`
	Bybit    ExchangeConfig `yaml:"bybit"`
}

type ExchangeConfig struct {
	Enabled   bool     `yaml:"enabled"`
	URL       string   `yaml:"url"`
	Symbols   []string `yaml:"symbols"`
	TimeoutMs int      `yaml:"timeout_ms"`
	// REST pacing for exchanges with a snapshot/catalog bootstrap
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	SnapshotDepth     int     `yaml:"snapshot_depth"`
}

func (e ExchangeConfig) Timeout() time.Duration {
	if e.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

type ScannerConfig struct {
	IntervalMs     int     `yaml:"interval_ms"`
	MinProfitPct   float64 `yaml:"min_profit_pct"`
	MaxDataAgeMs   int     `yaml:"max_data_age_ms"`
	TradeSize      float64 `yaml:"trade_size"`
	Capital        float64 `yaml:"capital"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
}

func (s ScannerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

func (s ScannerConfig) MaxDataAge() time.Duration {
	return time.Duration(s.MaxDataAgeMs) * time.Millisecond
}

type FeesConfig struct {
	Discounts  []DiscountConfig   `yaml:"discounts"`
	Volumes30d map[string]float64 `yaml:"volumes_30d"`
}

type DiscountConfig struct {
	Exchange string  `yaml:"exchange"`
	Maker    bool    `yaml:"maker"`
	Rate     float64 `yaml:"rate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type CloudwatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig reads the yaml file, applies defaults and environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Channels: ChannelsConfig{
			EventBuffer:       1024,
			OpportunityBuffer: 16,
		},
		Scanner: ScannerConfig{
			IntervalMs:     1000,
			MinProfitPct:   0.2,
			MaxDataAgeMs:   5000,
			TradeSize:      1000,
			Capital:        10000,
			MaxPositionPct: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			MaxAge: 7,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.TrimSpace(v)
	}
	if config.Cloudwatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Cloudwatch.Region = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Tradient.Name == "" {
		return fmt.Errorf("tradient.name is required")
	}
	if cfg.Tradient.Version == "" {
		return fmt.Errorf("tradient.version is required")
	}

	if cfg.Channels.EventBuffer <= 0 {
		return fmt.Errorf("channels.event_buffer must be greater than 0")
	}
	if cfg.Channels.OpportunityBuffer <= 0 {
		return fmt.Errorf("channels.opportunity_buffer must be greater than 0")
	}

	if cfg.Scanner.IntervalMs <= 0 {
		return fmt.Errorf("scanner.interval_ms must be greater than 0")
	}
	if cfg.Scanner.MinProfitPct < 0 {
		return fmt.Errorf("scanner.min_profit_pct must not be negative")
	}
	if cfg.Scanner.MaxDataAgeMs <= 0 {
		return fmt.Errorf("scanner.max_data_age_ms must be greater than 0")
	}
	if cfg.Scanner.TradeSize <= 0 {
		return fmt.Errorf("scanner.trade_size must be greater than 0")
	}
	if cfg.Scanner.Capital <= 0 {
		return fmt.Errorf("scanner.capital must be greater than 0")
	}
	if cfg.Scanner.MaxPositionPct <= 0 || cfg.Scanner.MaxPositionPct > 1 {
		return fmt.Errorf("scanner.max_position_pct must be in (0, 1]")
	}

	for _, ex := range enabledExchanges(cfg) {
		if len(ex.cfg.Symbols) == 0 {
			return fmt.Errorf("exchanges.%s.symbols is required when enabled", ex.name)
		}
	}

	for _, d := range cfg.Fees.Discounts {
		if d.Exchange == "" {
			return fmt.Errorf("fees.discounts entries require an exchange")
		}
		if d.Rate < 0 || d.Rate > 1 {
			return fmt.Errorf("fees.discounts rate for %s must be in [0, 1]", d.Exchange)
		}
	}

	if cfg.Cloudwatch.Enabled && cfg.Cloudwatch.Region == "" {
		return fmt.Errorf("cloudwatch.region is required when cloudwatch is enabled")
	}

	return nil
}

type namedExchange struct {
	name string
	cfg  ExchangeConfig
}

func enabledExchanges(cfg *Config) []namedExchange {
	all := []namedExchange{
		{"binance", cfg.Exchanges.Binance},
		{"coinbase", cfg.Exchanges.Coinbase},
		{"kraken", cfg.Exchanges.Kraken},
		{"okx", cfg.Exchanges.Okx},
		{"bybit", cfg.Exchanges.Bybit},
	}
	var enabled []namedExchange
	for _, e := range all {
		if e.cfg.Enabled {
			enabled = append(enabled, e)
		}
	}
	return enabled
}
