package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

// Sizer converts a ranked decision plus portfolio state into a concrete order,
// subject to the configured risk caps.
type Sizer struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewSizer creates a new position sizer.
func NewSizer(cfg *config.Config, logger zerolog.Logger) *Sizer {
	return &Sizer{cfg: cfg, logger: logger, now: time.Now}
}

// SetClock overrides the sizer's clock. Used by tests and the backtester.
func (s *Sizer) SetClock(now func() time.Time) { s.now = now }

// SizingInput carries everything the sizer needs for one decision.
type SizingInput struct {
	Decision       models.Decision
	PortfolioValue float64
	CurrentPrice   float64
	Existing       *models.Position   // nil when no position is held
	Chain          *models.OptionChain // nil when options are unavailable
	MarketOpen     bool
}

// Size returns the order for a decision, or nil when no order should be
// placed. The allocation never exceeds max_position_size_percent of portfolio
// value, even with a 2x tier multiplier.
func (s *Sizer) Size(in SizingInput) *models.Order {
	d := in.Decision
	if !d.Actionable() {
		return nil
	}

	if d.Confidence < s.cfg.Trading.MinConfidence {
		s.logger.Debug().
			Str("ticker", d.Ticker).
			Float64("confidence", d.Confidence).
			Msg("Skipping low confidence decision")
		return nil
	}

	if s.cfg.Trading.TradeDuringMarketHoursOnly && !in.MarketOpen {
		s.logger.Debug().Str("ticker", d.Ticker).Msg("Market closed, not opening positions")
		return nil
	}

	if in.CurrentPrice <= 0 || in.PortfolioValue <= 0 {
		return nil
	}

	ceiling := in.PortfolioValue * s.cfg.Trading.MaxPositionSizePercent / 100
	allocation := math.Min(ceiling*d.SizeMultiplier, ceiling)

	if s.optionEligible(d, in.Chain) {
		return s.sizeOption(d, in)
	}

	return s.sizeEquity(d, in, allocation)
}

func (s *Sizer) optionEligible(d models.Decision, chain *models.OptionChain) bool {
	return s.cfg.Options.UseOptions &&
		d.Confidence >= s.cfg.Options.MinOptionConfidence &&
		chain != nil && len(chain.Contracts) > 0
}

func (s *Sizer) sizeEquity(d models.Decision, in SizingInput, allocation float64) *models.Order {
	target := int(allocation / in.CurrentPrice)
	if target <= 0 {
		s.logger.Warn().
			Str("ticker", d.Ticker).
			Float64("allocation", allocation).
			Float64("price", in.CurrentPrice).
			Msg("Calculated position size rounds to zero")
		return nil
	}

	quantity := target
	if in.Existing != nil && in.Existing.Quantity != 0 {
		sameDirection := (d.Direction == models.DirectionBuy) == in.Existing.IsLong()
		if !sameDirection {
			// An opposite-direction decision never blindly reverses a held
			// position; the exit evaluator owns closing it.
			s.logger.Debug().
				Str("ticker", d.Ticker).
				Msg("Decision opposes held position, leaving it to exit rules")
			return nil
		}
		// Same direction: top up to the target share count.
		quantity = target - in.Existing.AbsQuantity()
		if quantity <= 0 {
			return nil
		}
	}

	side := models.OrderSideBuy
	if d.Direction == models.DirectionSell {
		side = models.OrderSideSell
	}

	return &models.Order{
		Ticker:      d.Ticker,
		Side:        side,
		Type:        models.OrderTypeMarket,
		Class:       models.AssetEquity,
		Quantity:    quantity,
		TimeInForce: "day",
		Tag:         "signal_" + string(d.Tier),
	}
}

// sizeOption selects the contract nearest the configured target delta and
// days-to-expiry and sizes it against the option allocation ceiling.
// Direction mapping: the decision direction already encodes the bot's own
// stance after transform, so bot-bullish buys a CALL and bot-bearish buys a
// PUT.
func (s *Sizer) sizeOption(d models.Decision, in SizingInput) *models.Order {
	optType := models.OptionCall
	if d.Direction == models.DirectionSell {
		optType = models.OptionPut
	}

	contract, ok := s.selectContract(in.Chain.ByType(optType))
	if !ok {
		s.logger.Debug().Str("ticker", d.Ticker).Msg("No suitable option contract")
		return nil
	}

	ceiling := in.PortfolioValue * s.cfg.Options.MaxOptionPositionPercent / 100
	allocation := math.Min(ceiling*d.SizeMultiplier, ceiling)

	premium := contract.Ask
	if premium <= 0 {
		premium = contract.LastPrice
	}
	if premium <= 0 {
		return nil
	}

	// One contract controls 100 shares.
	contracts := int(allocation / (premium * 100))
	if contracts <= 0 {
		s.logger.Warn().
			Str("ticker", d.Ticker).
			Float64("allocation", allocation).
			Float64("premium", premium).
			Msg("Option allocation rounds to zero contracts")
		return nil
	}

	return &models.Order{
		Ticker:       d.Ticker,
		Side:         models.OrderSideBuy,
		Type:         models.OrderTypeMarket,
		Class:        models.AssetOption,
		Quantity:     contracts,
		OptionSymbol: contract.Symbol,
		TimeInForce:  "day",
		Tag:          "option_" + string(d.Tier),
	}
}

// selectContract picks the contract minimizing distance to the target
// days-to-expiry, breaking ties by distance to the target delta. Delta is
// compared by absolute value so puts rank the same way as calls.
func (s *Sizer) selectContract(contracts []models.OptionContract) (models.OptionContract, bool) {
	if len(contracts) == 0 {
		return models.OptionContract{}, false
	}

	now := s.now()
	best := contracts[0]
	bestDTE := math.Abs(float64(best.DaysToExpiry(now) - s.cfg.Options.TargetDaysToExpiry))
	bestDelta := math.Abs(math.Abs(best.Delta) - s.cfg.Options.TargetDelta)

	for _, c := range contracts[1:] {
		dte := math.Abs(float64(c.DaysToExpiry(now) - s.cfg.Options.TargetDaysToExpiry))
		delta := math.Abs(math.Abs(c.Delta) - s.cfg.Options.TargetDelta)
		if dte < bestDTE || (dte == bestDTE && delta < bestDelta) {
			best, bestDTE, bestDelta = c, dte, delta
		}
	}

	return best, true
}
