package engine

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/Cikle/Alpatrader/internal/models"
)

// Resolution is the reconciled action set for one cycle. Closes always win
// over opens: a ticker never appears in both lists.
type Resolution struct {
	Opens      []models.Decision
	Closes     []models.ExitTrigger
	Suppressed []models.Decision
}

// Resolve reconciles entry decisions against exit triggers. A decision for a
// ticker that is being closed this cycle is suppressed rather than queued, so
// the bot never opens and closes the same ticker within one cycle. Opens are
// returned in a deterministic order: tier rank first, then confidence, then
// ticker.
func Resolve(decisions []models.Decision, triggers []models.ExitTrigger, logger zerolog.Logger) Resolution {
	closing := make(map[string]bool, len(triggers))
	for _, t := range triggers {
		closing[t.Ticker] = true
	}

	res := Resolution{Closes: triggers}
	for _, d := range decisions {
		if closing[d.Ticker] {
			logger.Info().
				Str("ticker", d.Ticker).
				Str("tier", string(d.Tier)).
				Msg("Suppressing entry, ticker is closing this cycle")
			res.Suppressed = append(res.Suppressed, d)
			continue
		}
		res.Opens = append(res.Opens, d)
	}

	sort.SliceStable(res.Opens, func(i, j int) bool {
		a, b := res.Opens[i], res.Opens[j]
		if a.Tier != b.Tier {
			return a.Tier.Rank() > b.Tier.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Ticker < b.Ticker
	})

	return res
}
