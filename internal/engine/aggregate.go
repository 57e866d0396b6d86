package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

// Aggregator merges per-ticker signals from all sources into one ranked
// decision per ticker, applying pre-filters, strategy transforms, and the tier
// hierarchy.
type Aggregator struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time

	insiderMode  StrategyMode
	congressMode StrategyMode
}

// NewAggregator creates a new aggregator. Strategy modes are resolved once
// here; unrecognized values fall back to inverse with a warning.
func NewAggregator(cfg *config.Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		insiderMode:  ParseMode(cfg.Trading.InsiderStrategy, logger),
		congressMode: ParseMode(cfg.Trading.CongressStrategy, logger),
	}
}

// SetClock overrides the aggregator's clock. Used by tests and the backtester.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// Aggregate produces at most one Decision per ticker from the cycle's signal
// snapshot. Malformed signals are dropped with a warning; they never abort the
// cycle.
func (a *Aggregator) Aggregate(signals []models.Signal) map[string]models.Decision {
	decisions := make(map[string]models.Decision)

	now := a.now()
	if a.cfg.Filters.SkipFOMCBlackout && InFOMCBlackout(now) {
		a.logger.Info().Msg("Inside FOMC blackout window, skipping signal processing")
		return decisions
	}

	byTicker := make(map[string][]models.EffectiveSignal)
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			a.logger.Warn().Err(err).Msg("Dropping malformed signal")
			continue
		}
		if !a.passesFilters(sig, now) {
			continue
		}
		eff := Effective(sig, a.modeFor(sig.Source))
		byTicker[sig.Ticker] = append(byTicker[sig.Ticker], eff)
	}

	for ticker, effs := range byTicker {
		if d, ok := a.decide(ticker, effs, now); ok {
			decisions[ticker] = d
		}
	}

	return decisions
}

func (a *Aggregator) modeFor(source models.Source) StrategyMode {
	switch source {
	case models.SourceInsider:
		return a.insiderMode
	case models.SourceCongress:
		return a.congressMode
	default:
		// News sentiment is always taken at face value; the transforms apply
		// to the transaction sources only.
		return ModeNormal
	}
}

// passesFilters applies the configured pre-filters to a signal before it can
// contribute to aggregation.
func (a *Aggregator) passesFilters(sig models.Signal, now time.Time) bool {
	switch sig.Source {
	case models.SourceInsider:
		if sig.Magnitude < a.cfg.Trading.MinInsiderTransactionSize {
			a.logger.Debug().
				Str("ticker", sig.Ticker).
				Float64("amount", sig.Magnitude).
				Msg("Insider transaction below minimum size")
			return false
		}
		if !a.delayElapsed(sig, a.cfg.Trading.InsiderDelayHours, now) {
			return false
		}
	case models.SourceCongress:
		if sig.Magnitude > a.cfg.Trading.MaxCongressTransactionSize {
			a.logger.Debug().
				Str("ticker", sig.Ticker).
				Float64("amount", sig.Magnitude).
				Msg("Congress transaction above maximum size")
			return false
		}
		if !a.delayElapsed(sig, a.cfg.Trading.CongressDelayHours, now) {
			return false
		}
	}

	if sig.Sector != "" {
		for _, blocked := range a.cfg.Filters.BlacklistSectors {
			if sig.Sector == blocked {
				a.logger.Debug().
					Str("ticker", sig.Ticker).
					Str("sector", sig.Sector).
					Msg("Sector blacklisted")
				return false
			}
		}
	}

	return true
}

// delayElapsed enforces the deliberate lag after a filing before the signal
// becomes tradeable.
func (a *Aggregator) delayElapsed(sig models.Signal, delayHours float64, now time.Time) bool {
	if delayHours <= 0 {
		return true
	}
	if now.Sub(sig.Timestamp) < time.Duration(delayHours*float64(time.Hour)) {
		a.logger.Debug().
			Str("ticker", sig.Ticker).
			Str("source", string(sig.Source)).
			Time("filed", sig.Timestamp).
			Msg("Signal still inside delay window")
		return false
	}
	return true
}

// decide evaluates the tier hierarchy for one ticker. Higher tiers win
// outright; lower tiers are never blended in.
func (a *Aggregator) decide(ticker string, effs []models.EffectiveSignal, now time.Time) (models.Decision, bool) {
	var insider, congress, strongNews []models.EffectiveSignal
	for _, e := range effs {
		if e.Effective == models.DirectionNone {
			continue
		}
		switch e.Source {
		case models.SourceInsider:
			insider = append(insider, e)
		case models.SourceCongress:
			congress = append(congress, e)
		case models.SourceNews:
			if e.Confidence >= a.cfg.Trading.StrongNewsThreshold {
				strongNews = append(strongNews, e)
			}
		}
	}

	sortByPreference(insider)
	sortByPreference(congress)
	sortByPreference(strongNews)

	// Tier 1: strong news confirmed by an agreeing insider or congress signal.
	if len(strongNews) > 0 {
		news := strongNews[0]
		others := append(append([]models.EffectiveSignal{}, insider...), congress...)
		sortByPreference(others)
		for _, other := range others {
			if other.Effective == news.Effective {
				return models.Decision{
					Ticker:         ticker,
					Tier:           models.TierStrongNewsCombo,
					Direction:      news.Effective,
					Confidence:     (news.Confidence + other.Confidence) / 2,
					SizeMultiplier: a.cfg.Trading.StrongNewsMultiplier,
					Contributing:   []models.EffectiveSignal{news, other},
					Description:    fmt.Sprintf("Strong news + %s trade", other.Source),
					CreatedAt:      now,
				}, true
			}
		}
	}

	// Tier 2: congress only.
	if len(congress) > 0 {
		best := congress[0]
		return models.Decision{
			Ticker:         ticker,
			Tier:           models.TierCongressOnly,
			Direction:      best.Effective,
			Confidence:     best.Confidence,
			SizeMultiplier: a.cfg.Trading.CongressOnlyMultiplier,
			Contributing:   []models.EffectiveSignal{best},
			Description:    fmt.Sprintf("Congress trade by %s", best.Actor),
			CreatedAt:      now,
		}, true
	}

	// Tier 3: insider only.
	if len(insider) > 0 {
		best := insider[0]
		return models.Decision{
			Ticker:         ticker,
			Tier:           models.TierInsiderOnly,
			Direction:      best.Effective,
			Confidence:     best.Confidence,
			SizeMultiplier: a.cfg.Trading.InsiderOnlyMultiplier,
			Contributing:   []models.EffectiveSignal{best},
			Description:    fmt.Sprintf("Insider trade by %s (%s)", best.Actor, best.Role),
			CreatedAt:      now,
		}, true
	}

	return models.Decision{}, false
}

// sortByPreference orders signals by the documented tie-break rule: highest
// confidence first, then most recent timestamp, then largest magnitude.
func sortByPreference(effs []models.EffectiveSignal) {
	sort.SliceStable(effs, func(i, j int) bool {
		if effs[i].Confidence != effs[j].Confidence {
			return effs[i].Confidence > effs[j].Confidence
		}
		if !effs[i].Timestamp.Equal(effs[j].Timestamp) {
			return effs[i].Timestamp.After(effs[j].Timestamp)
		}
		return effs[i].Magnitude > effs[j].Magnitude
	})
}
