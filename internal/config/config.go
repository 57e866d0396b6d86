// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Strategy modes recognized for signal sources.
const (
	StrategyInverse  = "inverse"
	StrategyNormal   = "normal"
	StrategyDisabled = "disabled"
)

// Config holds all application configuration.
type Config struct {
	Trading      TradingConfig `mapstructure:"trading"`
	Filters      FilterConfig  `mapstructure:"filters"`
	ExitStrategy ExitConfig    `mapstructure:"exit_strategy"`
	Options      OptionsConfig `mapstructure:"options"`
	Cache        CacheConfig   `mapstructure:"cache"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Notify       NotifyConfig  `mapstructure:"notifications"`
	Credentials  Credentials   `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds signal and sizing configuration.
type TradingConfig struct {
	InsiderStrategy  string `mapstructure:"insider_strategy"`  // inverse, normal, disabled
	CongressStrategy string `mapstructure:"congress_strategy"` // inverse, normal, disabled

	MaxPositionSizePercent float64 `mapstructure:"max_position_size_percent"`
	StrongNewsMultiplier   float64 `mapstructure:"strong_news_multiplier"`
	CongressOnlyMultiplier float64 `mapstructure:"congress_only_multiplier"`
	InsiderOnlyMultiplier  float64 `mapstructure:"insider_only_multiplier"`
	StrongNewsThreshold    float64 `mapstructure:"strong_news_threshold"`
	MinConfidence          float64 `mapstructure:"min_confidence"`

	MinInsiderTransactionSize  float64 `mapstructure:"min_insider_transaction_size"`
	MaxCongressTransactionSize float64 `mapstructure:"max_congress_transaction_size"`
	InsiderDelayHours          float64 `mapstructure:"insider_delay_hours"`
	CongressDelayHours         float64 `mapstructure:"congress_delay_hours"`

	TradeDuringMarketHoursOnly bool          `mapstructure:"trade_during_market_hours_only"`
	CycleInterval              time.Duration `mapstructure:"cycle_interval"`
	FetchTimeout               time.Duration `mapstructure:"fetch_timeout"`
}

// FilterConfig holds sector and calendar filters.
type FilterConfig struct {
	Sectors          []string `mapstructure:"sectors"`
	BlacklistSectors []string `mapstructure:"blacklist_sectors"`
	SkipFOMCBlackout bool     `mapstructure:"skip_fomc_blackout"`
}

// ExitConfig holds exit strategy configuration. Each rule is independently
// enabled by its use_* flag.
type ExitConfig struct {
	UseStopLoss     bool    `mapstructure:"use_stop_loss"`
	StopLossPercent float64 `mapstructure:"stop_loss_percent"` // negative threshold

	UseTakeProfit     bool    `mapstructure:"use_take_profit"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent"`

	UseTimeBasedExit bool `mapstructure:"use_time_based_exit"`
	MaxHoldDays      int  `mapstructure:"max_hold_days"`

	UseTrailingStop     bool    `mapstructure:"use_trailing_stop"`
	TrailingStopPercent float64 `mapstructure:"trailing_stop_percent"`

	ExitDuringMarketHoursOnly bool `mapstructure:"exit_during_market_hours_only"`
}

// OptionsConfig holds options trading configuration.
type OptionsConfig struct {
	UseOptions               bool    `mapstructure:"use_options"`
	MinOptionConfidence      float64 `mapstructure:"min_option_confidence"`
	MaxOptionPositionPercent float64 `mapstructure:"max_option_position_percent"`
	TargetDelta              float64 `mapstructure:"target_delta"`
	TargetDaysToExpiry       int     `mapstructure:"target_days_to_expiry"`
}

// CacheConfig holds cache store configuration.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// NotifyConfig holds trade notification configuration.
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Level      string `mapstructure:"level"` // all, trades_only, errors_only
	WebhookURL string `mapstructure:"webhook_url"`
}

// Credentials holds API credentials.
type Credentials struct {
	Alpaca AlpacaCredentials `mapstructure:"alpaca"`
	News   NewsCredentials   `mapstructure:"news"`
}

// AlpacaCredentials holds Alpaca API credentials.
type AlpacaCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	DataURL   string `mapstructure:"data_url"`
}

// NewsCredentials holds news and sentiment API credentials.
type NewsCredentials struct {
	NewsAPIKey string `mapstructure:"newsapi_key"`
	FinnhubKey string `mapstructure:"finnhub_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/alpatrader"
	}
	return filepath.Join(home, ".config", "alpatrader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if terr := createTemplateConfig(configDir, name); terr != nil {
				return terr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetDefault("alpaca.base_url", "https://paper-api.alpaca.markets")
	v.SetDefault("alpaca.data_url", "https://data.alpaca.markets")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if terr := createTemplateCredentials(configDir); terr != nil {
				return terr
			}
			return v.Unmarshal(creds)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.insider_strategy", StrategyInverse)
	v.SetDefault("trading.congress_strategy", StrategyInverse)
	v.SetDefault("trading.max_position_size_percent", 5.0)
	v.SetDefault("trading.strong_news_multiplier", 2.0)
	v.SetDefault("trading.congress_only_multiplier", 1.0)
	v.SetDefault("trading.insider_only_multiplier", 0.5)
	v.SetDefault("trading.strong_news_threshold", 0.7)
	v.SetDefault("trading.min_confidence", 0.5)
	v.SetDefault("trading.min_insider_transaction_size", 200000.0)
	v.SetDefault("trading.max_congress_transaction_size", 1000000.0)
	v.SetDefault("trading.insider_delay_hours", 24.0)
	v.SetDefault("trading.congress_delay_hours", 24.0)
	v.SetDefault("trading.trade_during_market_hours_only", true)
	v.SetDefault("trading.cycle_interval", "5m")
	v.SetDefault("trading.fetch_timeout", "15s")

	v.SetDefault("filters.sectors", []string{})
	v.SetDefault("filters.blacklist_sectors", []string{})
	v.SetDefault("filters.skip_fomc_blackout", true)

	v.SetDefault("exit_strategy.use_stop_loss", true)
	v.SetDefault("exit_strategy.stop_loss_percent", -10.0)
	v.SetDefault("exit_strategy.use_take_profit", true)
	v.SetDefault("exit_strategy.take_profit_percent", 20.0)
	v.SetDefault("exit_strategy.use_time_based_exit", true)
	v.SetDefault("exit_strategy.max_hold_days", 30)
	v.SetDefault("exit_strategy.use_trailing_stop", false)
	v.SetDefault("exit_strategy.trailing_stop_percent", 5.0)
	v.SetDefault("exit_strategy.exit_during_market_hours_only", true)

	v.SetDefault("options.use_options", false)
	v.SetDefault("options.min_option_confidence", 0.7)
	v.SetDefault("options.max_option_position_percent", 2.0)
	v.SetDefault("options.target_delta", 0.5)
	v.SetDefault("options.target_days_to_expiry", 30)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", "6h")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9183")

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "trades_only")
	v.SetDefault("notifications.webhook_url", "")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Credentials.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Credentials.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Credentials.Alpaca.BaseURL = v
	}
	if v := os.Getenv("NEWSAPI_KEY"); v != "" {
		cfg.Credentials.News.NewsAPIKey = v
	}
	if v := os.Getenv("FINNHUB_KEY"); v != "" {
		cfg.Credentials.News.FinnhubKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
}

// Normalize resolves invalid enum values to their documented defaults, logging
// a warning for each substitution. Unrecognized strategy modes fall back to
// inverse, never normal.
func (c *Config) Normalize(logger zerolog.Logger) {
	c.Trading.InsiderStrategy = normalizeStrategy(c.Trading.InsiderStrategy, "insider_strategy", logger)
	c.Trading.CongressStrategy = normalizeStrategy(c.Trading.CongressStrategy, "congress_strategy", logger)
}

func normalizeStrategy(mode, field string, logger zerolog.Logger) string {
	switch mode {
	case StrategyInverse, StrategyNormal, StrategyDisabled:
		return mode
	}
	logger.Warn().
		Str("field", field).
		Str("value", mode).
		Str("default", StrategyInverse).
		Msg("Unrecognized strategy mode, using inverse")
	return StrategyInverse
}

// Validate validates numeric ranges. Strategy enums are resolved by Normalize
// and are never fatal.
func (c *Config) Validate() error {
	if c.Trading.MaxPositionSizePercent < 0 || c.Trading.MaxPositionSizePercent > 100 {
		return fmt.Errorf("max_position_size_percent must be between 0 and 100")
	}
	if c.Trading.StrongNewsThreshold < 0 || c.Trading.StrongNewsThreshold > 1 {
		return fmt.Errorf("strong_news_threshold must be between 0 and 1")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1")
	}
	if c.ExitStrategy.StopLossPercent > 0 {
		return fmt.Errorf("stop_loss_percent must be zero or negative")
	}
	if c.ExitStrategy.TrailingStopPercent < 0 {
		return fmt.Errorf("trailing_stop_percent must be non-negative")
	}
	if c.Options.MinOptionConfidence < 0 || c.Options.MinOptionConfidence > 1 {
		return fmt.Errorf("min_option_confidence must be between 0 and 1")
	}
	if c.Options.MaxOptionPositionPercent < 0 || c.Options.MaxOptionPositionPercent > 100 {
		return fmt.Errorf("max_option_position_percent must be between 0 and 100")
	}
	if c.Trading.CycleInterval <= 0 {
		return fmt.Errorf("cycle_interval must be positive")
	}
	return nil
}

// ValidateCredentials checks that required broker credentials are present.
// Missing credentials are fatal at startup.
func (c *Config) ValidateCredentials() error {
	if c.Credentials.Alpaca.APIKey == "" || c.Credentials.Alpaca.APISecret == "" {
		return fmt.Errorf("alpaca api_key and api_secret are required")
	}
	return nil
}
