// Package engine implements the signal processing and position-sizing engine:
// strategy transforms, signal aggregation, sizing, exit evaluation, conflict
// resolution, and the cycle orchestrator.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

// StrategyMode controls how a source's raw direction maps to the bot's own
// stance.
type StrategyMode string

const (
	ModeInverse  StrategyMode = StrategyMode(config.StrategyInverse)
	ModeNormal   StrategyMode = StrategyMode(config.StrategyNormal)
	ModeDisabled StrategyMode = StrategyMode(config.StrategyDisabled)
)

// ParseMode parses a configured strategy mode string. Unrecognized values fail
// soft: a warning is logged and inverse is substituted. Inverse, not normal,
// is the safe default for this strategy.
func ParseMode(raw string, logger zerolog.Logger) StrategyMode {
	switch StrategyMode(raw) {
	case ModeInverse, ModeNormal, ModeDisabled:
		return StrategyMode(raw)
	}
	logger.Warn().
		Str("mode", raw).
		Str("default", string(ModeInverse)).
		Msg("Unrecognized strategy mode, using inverse")
	return ModeInverse
}

// Transform maps a raw signal direction through a strategy mode to the bot's
// effective direction. Pure function; inverse is an involution.
func Transform(dir models.Direction, mode StrategyMode) models.Direction {
	if mode == ModeDisabled {
		return models.DirectionNone
	}
	if dir != models.DirectionBuy && dir != models.DirectionSell {
		return models.DirectionNone
	}
	if mode == ModeInverse {
		return dir.Opposite()
	}
	return dir
}

// Effective applies the strategy transform to a signal.
func Effective(sig models.Signal, mode StrategyMode) models.EffectiveSignal {
	return models.EffectiveSignal{
		Signal:    sig,
		Effective: Transform(sig.Direction, mode),
	}
}
