package engine

import (
	"time"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

// testConfig returns a config with the documented defaults, suitable for
// driving the engine in tests.
func testConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			InsiderStrategy:            config.StrategyInverse,
			CongressStrategy:           config.StrategyNormal,
			MaxPositionSizePercent:     5.0,
			StrongNewsMultiplier:       2.0,
			CongressOnlyMultiplier:     1.0,
			InsiderOnlyMultiplier:      0.5,
			StrongNewsThreshold:        0.7,
			MinConfidence:              0.5,
			MinInsiderTransactionSize:  200_000,
			MaxCongressTransactionSize: 1_000_000,
			InsiderDelayHours:          24,
			CongressDelayHours:         24,
			TradeDuringMarketHoursOnly: true,
			CycleInterval:              5 * time.Minute,
			FetchTimeout:               15 * time.Second,
		},
		Filters: config.FilterConfig{
			SkipFOMCBlackout: false,
		},
		ExitStrategy: config.ExitConfig{
			UseStopLoss:               true,
			StopLossPercent:           -10.0,
			UseTakeProfit:             true,
			TakeProfitPercent:         20.0,
			UseTimeBasedExit:          true,
			MaxHoldDays:               30,
			UseTrailingStop:           false,
			TrailingStopPercent:       5.0,
			ExitDuringMarketHoursOnly: true,
		},
		Options: config.OptionsConfig{
			UseOptions:               false,
			MinOptionConfidence:      0.7,
			MaxOptionPositionPercent: 2.0,
			TargetDelta:              0.5,
			TargetDaysToExpiry:       30,
		},
	}
}

// testClock returns a fixed clock at a Tuesday 12:00 ET, well inside regular
// market hours.
func testClock() func() time.Time {
	at := time.Date(2024, 6, 25, 16, 0, 0, 0, time.UTC) // 12:00 ET, outside any FOMC window
	return func() time.Time { return at }
}

func insiderSignal(ticker, role string, dir models.Direction, amount float64, filed time.Time) models.Signal {
	return NormalizeTransaction(models.RawTransaction{
		Ticker:       ticker,
		Actor:        "Test Insider",
		Role:         role,
		Direction:    dir,
		DollarAmount: amount,
		FilingDate:   filed,
	}, models.SourceInsider, filed)
}

func congressSignal(ticker string, dir models.Direction, amount float64, filed time.Time) models.Signal {
	return NormalizeTransaction(models.RawTransaction{
		Ticker:       ticker,
		Actor:        "Test Senator",
		Role:         "Senator",
		Direction:    dir,
		DollarAmount: amount,
		FilingDate:   filed,
	}, models.SourceCongress, filed)
}

func newsSignal(ticker string, sentiment, confidence float64, published time.Time) models.Signal {
	return NormalizeNews(models.RawNewsItem{
		Ticker:      ticker,
		Headline:    "test headline",
		Sentiment:   sentiment,
		Confidence:  confidence,
		PublishedAt: published,
	}, published)
}
