package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesTemplatesAndDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Template files are written for the user to edit.
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.FileExists(t, filepath.Join(dir, "credentials.toml"))

	// Documented defaults.
	assert.Equal(t, StrategyInverse, cfg.Trading.InsiderStrategy)
	assert.Equal(t, StrategyInverse, cfg.Trading.CongressStrategy)
	assert.Equal(t, 5.0, cfg.Trading.MaxPositionSizePercent)
	assert.Equal(t, 2.0, cfg.Trading.StrongNewsMultiplier)
	assert.Equal(t, 1.0, cfg.Trading.CongressOnlyMultiplier)
	assert.Equal(t, 0.5, cfg.Trading.InsiderOnlyMultiplier)
	assert.Equal(t, 0.7, cfg.Trading.StrongNewsThreshold)
	assert.Equal(t, 200_000.0, cfg.Trading.MinInsiderTransactionSize)
	assert.Equal(t, 1_000_000.0, cfg.Trading.MaxCongressTransactionSize)
	assert.Equal(t, -10.0, cfg.ExitStrategy.StopLossPercent)
	assert.Equal(t, 20.0, cfg.ExitStrategy.TakeProfitPercent)
	assert.Equal(t, 30, cfg.ExitStrategy.MaxHoldDays)
	assert.Equal(t, 5.0, cfg.ExitStrategy.TrailingStopPercent)
	assert.Equal(t, 5*time.Minute, cfg.Trading.CycleInterval)
	assert.True(t, cfg.Filters.SkipFOMCBlackout)
	assert.False(t, cfg.Options.UseOptions)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[trading]
insider_strategy = "normal"
max_position_size_percent = 10.0
cycle_interval = "10m"

[exit_strategy]
use_trailing_stop = true
trailing_stop_percent = 7.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, StrategyNormal, cfg.Trading.InsiderStrategy)
	assert.Equal(t, 10.0, cfg.Trading.MaxPositionSizePercent)
	assert.Equal(t, 10*time.Minute, cfg.Trading.CycleInterval)
	assert.True(t, cfg.ExitStrategy.UseTrailingStop)
	assert.Equal(t, 7.5, cfg.ExitStrategy.TrailingStopPercent)

	// Unset fields keep their defaults.
	assert.Equal(t, StrategyInverse, cfg.Trading.CongressStrategy)
}

func TestNormalizeSubstitutesInvalidStrategy(t *testing.T) {
	cfg := &Config{}
	cfg.Trading.InsiderStrategy = "aggressive"
	cfg.Trading.CongressStrategy = StrategyNormal

	cfg.Normalize(zerolog.Nop())

	// Invalid modes fall back to inverse, never normal.
	assert.Equal(t, StrategyInverse, cfg.Trading.InsiderStrategy)
	assert.Equal(t, StrategyNormal, cfg.Trading.CongressStrategy)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Trading.MaxPositionSizePercent = 5
		cfg.Trading.StrongNewsThreshold = 0.7
		cfg.Trading.MinConfidence = 0.5
		cfg.Trading.CycleInterval = time.Minute
		cfg.ExitStrategy.StopLossPercent = -10
		cfg.ExitStrategy.TrailingStopPercent = 5
		cfg.Options.MinOptionConfidence = 0.7
		cfg.Options.MaxOptionPositionPercent = 2
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Trading.MaxPositionSizePercent = 150
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.ExitStrategy.StopLossPercent = 10
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Trading.StrongNewsThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Trading.CycleInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateCredentials(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateCredentials())

	cfg.Credentials.Alpaca.APIKey = "key"
	assert.Error(t, cfg.ValidateCredentials())

	cfg.Credentials.Alpaca.APISecret = "secret"
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("FINNHUB_KEY", "env-finnhub")
	t.Setenv("REDIS_ADDR", "localhost:6380")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Credentials.Alpaca.APIKey)
	assert.Equal(t, "env-finnhub", cfg.Credentials.News.FinnhubKey)
	assert.Equal(t, "localhost:6380", cfg.Cache.RedisAddr)
}
