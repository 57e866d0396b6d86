package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/models"
)

func TestResolveSuppressesClosingTickers(t *testing.T) {
	decisions := []models.Decision{
		decision("ACME", models.TierCongressOnly, models.DirectionBuy, 0.8, 1.0),
		decision("OTHR", models.TierInsiderOnly, models.DirectionBuy, 0.7, 0.5),
	}
	triggers := []models.ExitTrigger{
		{Ticker: "ACME", Reason: models.ExitReasonStopLoss, Quantity: 100, TriggeredAt: time.Now()},
	}

	res := Resolve(decisions, triggers, zerolog.Nop())

	require.Len(t, res.Opens, 1)
	assert.Equal(t, "OTHR", res.Opens[0].Ticker)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, "ACME", res.Suppressed[0].Ticker)
	assert.Equal(t, triggers, res.Closes)
}

func TestResolveNoConflicts(t *testing.T) {
	decisions := []models.Decision{
		decision("ACME", models.TierCongressOnly, models.DirectionBuy, 0.8, 1.0),
	}

	res := Resolve(decisions, nil, zerolog.Nop())
	assert.Len(t, res.Opens, 1)
	assert.Empty(t, res.Suppressed)
	assert.Empty(t, res.Closes)
}

func TestResolveOrdersOpensDeterministically(t *testing.T) {
	decisions := []models.Decision{
		decision("ZZZ", models.TierInsiderOnly, models.DirectionBuy, 0.9, 0.5),
		decision("AAA", models.TierInsiderOnly, models.DirectionBuy, 0.9, 0.5),
		decision("MID", models.TierCongressOnly, models.DirectionBuy, 0.6, 1.0),
		decision("TOP", models.TierStrongNewsCombo, models.DirectionBuy, 0.8, 2.0),
	}

	res := Resolve(decisions, nil, zerolog.Nop())

	require.Len(t, res.Opens, 4)
	// Tier rank first, then confidence, then ticker.
	assert.Equal(t, "TOP", res.Opens[0].Ticker)
	assert.Equal(t, "MID", res.Opens[1].Ticker)
	assert.Equal(t, "AAA", res.Opens[2].Ticker)
	assert.Equal(t, "ZZZ", res.Opens[3].Ticker)
}
