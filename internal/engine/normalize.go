package engine

import (
	"math"
	"strings"
	"time"

	"github.com/Cikle/Alpatrader/internal/models"
)

// Confidence heuristics for normalized signals. Insider confidence scales
// with seniority of the filer; both transaction sources get a small bump for
// larger dollar amounts.
const (
	confInsiderCEO   = 0.8
	confInsiderCFO   = 0.7
	confInsiderOther = 0.5
	confCongressBase = 0.6
	confSizeBumpMax  = 0.1
)

// NormalizeTransaction converts a raw filing into a Signal. The source
// determines which confidence heuristic applies.
func NormalizeTransaction(raw models.RawTransaction, source models.Source, now time.Time) models.Signal {
	return models.Signal{
		Ticker:     strings.ToUpper(strings.TrimSpace(raw.Ticker)),
		Source:     source,
		Direction:  raw.Direction,
		Magnitude:  raw.DollarAmount,
		Confidence: transactionConfidence(raw, source),
		Timestamp:  raw.FilingDate,
		ObservedAt: now,
		Actor:      raw.Actor,
		Role:       raw.Role,
		Sector:     raw.Sector,
	}
}

func transactionConfidence(raw models.RawTransaction, source models.Source) float64 {
	var base float64
	switch source {
	case models.SourceInsider:
		switch strings.ToUpper(raw.Role) {
		case "CEO":
			base = confInsiderCEO
		case "CFO":
			base = confInsiderCFO
		default:
			base = confInsiderOther
		}
	case models.SourceCongress:
		base = confCongressBase
	default:
		base = confInsiderOther
	}

	// Size bump: up to +0.1 as the transaction approaches $10M.
	bump := math.Min(confSizeBumpMax, raw.DollarAmount/10_000_000*confSizeBumpMax)
	return math.Min(1.0, base+bump)
}

// NormalizeNews converts a raw news/sentiment record into a Signal. Sentiment
// sign maps to direction; magnitude is the absolute sentiment strength.
func NormalizeNews(raw models.RawNewsItem, now time.Time) models.Signal {
	dir := models.DirectionBuy
	if raw.Sentiment < 0 {
		dir = models.DirectionSell
	}
	return models.Signal{
		Ticker:     strings.ToUpper(strings.TrimSpace(raw.Ticker)),
		Source:     models.SourceNews,
		Direction:  dir,
		Magnitude:  math.Abs(raw.Sentiment),
		Confidence: raw.Confidence,
		Timestamp:  raw.PublishedAt,
		ObservedAt: now,
	}
}
