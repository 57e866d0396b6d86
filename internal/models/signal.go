// Package models provides domain models for the trading application.
package models

import (
	"fmt"
	"time"
)

// Source identifies where a signal originated.
type Source string

const (
	SourceInsider  Source = "insider"
	SourceCongress Source = "congress"
	SourceNews     Source = "news"
)

// Direction represents the directional bias of a signal or decision.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionNone Direction = "NONE"
)

// Opposite returns the inverse direction. None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionBuy:
		return DirectionSell
	case DirectionSell:
		return DirectionBuy
	default:
		return DirectionNone
	}
}

// Signal is a normalized record produced from a raw transaction or news item.
// Immutable once created.
type Signal struct {
	Ticker     string
	Source     Source
	Direction  Direction // raw direction as observed at the source
	Magnitude  float64   // transaction dollar size, or sentiment strength for news
	Confidence float64   // in [0,1]
	Timestamp  time.Time // event time (filing date, publication time)
	ObservedAt time.Time // ingestion time
	Actor      string    // insider name or member of Congress
	Role       string    // CEO, CFO, ... (insider only)
	Sector     string
}

// Validate reports whether the signal satisfies its invariants.
func (s Signal) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("signal missing ticker")
	}
	if s.Direction != DirectionBuy && s.Direction != DirectionSell {
		return fmt.Errorf("signal %s has invalid direction %q", s.Ticker, s.Direction)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal %s confidence %.3f outside [0,1]", s.Ticker, s.Confidence)
	}
	if s.Magnitude < 0 {
		return fmt.Errorf("signal %s has negative magnitude %.2f", s.Ticker, s.Magnitude)
	}
	return nil
}

// EffectiveSignal is a Signal after the configured strategy transform has been
// applied. Effective is None when the source is disabled or the signal failed a
// gate.
type EffectiveSignal struct {
	Signal
	Effective Direction
}

// Tier is the priority class determining which source dominates a ticker's
// decision this cycle.
type Tier string

const (
	TierStrongNewsCombo Tier = "strong_news_combo"
	TierCongressOnly    Tier = "congress_only"
	TierInsiderOnly     Tier = "insider_only"
	TierNone            Tier = "none"
)

// Rank returns the tier's priority for ordering, higher wins.
func (t Tier) Rank() int {
	switch t {
	case TierStrongNewsCombo:
		return 3
	case TierCongressOnly:
		return 2
	case TierInsiderOnly:
		return 1
	default:
		return 0
	}
}

// Decision is the per-ticker, per-cycle output of the aggregator.
type Decision struct {
	Ticker         string
	Tier           Tier
	Direction      Direction
	Confidence     float64
	SizeMultiplier float64
	Contributing   []EffectiveSignal // ordered, for audit
	Description    string
	CreatedAt      time.Time
}

// Actionable reports whether the decision can generate an order.
func (d Decision) Actionable() bool {
	return d.Tier != TierNone && (d.Direction == DirectionBuy || d.Direction == DirectionSell)
}

// ExitReason identifies which exit rule triggered a close.
type ExitReason string

const (
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTimeBased    ExitReason = "time_based"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
)

// ExitTrigger is the ephemeral result of evaluating one position against the
// configured exit rules.
type ExitTrigger struct {
	Ticker      string
	Reason      ExitReason
	Detail      string
	Quantity    int // absolute quantity to close
	TriggeredAt time.Time
}

// RawTransaction is an unnormalized filing row from a data feed.
type RawTransaction struct {
	Ticker       string
	Actor        string
	Role         string
	Direction    Direction
	DollarAmount float64
	Sector       string
	FilingDate   time.Time
}

// RawNewsItem is an unnormalized news/sentiment record from a data feed.
type RawNewsItem struct {
	Ticker      string
	Headline    string
	Sentiment   float64 // positive bullish, negative bearish
	Confidence  float64 // in [0,1]
	PublishedAt time.Time
}
