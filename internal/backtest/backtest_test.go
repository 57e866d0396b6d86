package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

func btConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.InsiderStrategy = config.StrategyDisabled
	cfg.Trading.CongressStrategy = config.StrategyNormal
	cfg.Trading.MaxPositionSizePercent = 5.0
	cfg.Trading.StrongNewsMultiplier = 2.0
	cfg.Trading.CongressOnlyMultiplier = 1.0
	cfg.Trading.InsiderOnlyMultiplier = 0.5
	cfg.Trading.StrongNewsThreshold = 0.7
	cfg.Trading.MinConfidence = 0.5
	cfg.Trading.MinInsiderTransactionSize = 200_000
	cfg.Trading.MaxCongressTransactionSize = 1_000_000
	cfg.Filters.SkipFOMCBlackout = true
	return cfg
}

func congressSignal(ticker string, day time.Time) models.Signal {
	return models.Signal{
		Ticker:     ticker,
		Source:     models.SourceCongress,
		Direction:  models.DirectionBuy,
		Magnitude:  150_000,
		Confidence: 0.75,
		Timestamp:  day,
		ObservedAt: day,
		Actor:      "Sen. Example",
	}
}

func TestPriceOnDeterministic(t *testing.T) {
	day := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)

	for _, ticker := range []string{"AAPL", "MSFT", "ACME", "X"} {
		p := PriceOn(ticker, day)
		assert.GreaterOrEqual(t, p, 10.0)
		assert.Less(t, p, 500.0)
		assert.Equal(t, p, PriceOn(ticker, day))
	}

	// Different tickers and different days move the price.
	assert.NotEqual(t, PriceOn("AAPL", day), PriceOn("MSFT", day))
	assert.NotEqual(t, PriceOn("AAPL", day), PriceOn("AAPL", day.AddDate(0, 0, 1)))
}

func TestRunExecutesBuy(t *testing.T) {
	cfg := btConfig()
	runner := NewRunner(cfg, zerolog.Nop())

	// Tuesday in a quiet week, well clear of any FOMC window.
	start := time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	tradeDay := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)

	result := runner.Run([]models.Signal{congressSignal("ACME", tradeDay)}, start, end, 100_000)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, "ACME", trade.Ticker)
	assert.Equal(t, models.OrderSideBuy, trade.Side)
	assert.Equal(t, models.TierCongressOnly, trade.Tier)

	price := PriceOn("ACME", tradeDay)
	assert.Equal(t, int(5_000/price), trade.Quantity)
	assert.Equal(t, price, trade.Price)

	// Ending equity is leftover cash plus the position marked at the final day.
	cost := float64(trade.Quantity) * price
	want := 100_000 - cost + float64(trade.Quantity)*PriceOn("ACME", end)
	assert.InDelta(t, want, result.EndingEquity, 0.01)
	assert.Equal(t, 5, result.DaysSimulated)
}

func TestRunInverseSells(t *testing.T) {
	cfg := btConfig()
	cfg.Trading.CongressStrategy = config.StrategyInverse
	runner := NewRunner(cfg, zerolog.Nop())

	day := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)
	result := runner.Run([]models.Signal{congressSignal("ACME", day)}, day, day, 100_000)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, models.OrderSideSell, result.Trades[0].Side)
	// Proceeds land in cash; the short is marked back out at the same price.
	assert.InDelta(t, 100_000, result.EndingEquity, 0.01)
}

func TestRunSkipsWeekends(t *testing.T) {
	cfg := btConfig()
	runner := NewRunner(cfg, zerolog.Nop())

	saturday := time.Date(2024, 6, 22, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC)

	result := runner.Run([]models.Signal{congressSignal("ACME", saturday)}, saturday, sunday, 50_000)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.DaysSimulated)
	assert.Equal(t, 50_000.0, result.EndingEquity)
}

func TestReturnPercent(t *testing.T) {
	r := Result{StartingEquity: 100_000, EndingEquity: 110_000}
	assert.InDelta(t, 10.0, r.ReturnPercent(), 0.0001)

	assert.Zero(t, Result{}.ReturnPercent())
}
