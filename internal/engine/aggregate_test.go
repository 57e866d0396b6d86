package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cikle/Alpatrader/internal/config"
	"github.com/Cikle/Alpatrader/internal/models"
)

func newTestAggregator(cfg *configOverride) *Aggregator {
	c := testConfig()
	if cfg != nil {
		cfg.apply(c)
	}
	a := NewAggregator(c, zerolog.Nop())
	a.SetClock(testClock())
	return a
}

type configOverride struct {
	insiderStrategy  string
	congressStrategy string
	skipFOMC         bool
	blacklist        []string
}

func (o *configOverride) apply(c *config.Config) {
	if o.insiderStrategy != "" {
		c.Trading.InsiderStrategy = o.insiderStrategy
	}
	if o.congressStrategy != "" {
		c.Trading.CongressStrategy = o.congressStrategy
	}
	c.Filters.SkipFOMCBlackout = o.skipFOMC
	if o.blacklist != nil {
		c.Filters.BlacklistSectors = o.blacklist
	}
}

func TestAggregateInsiderOnly(t *testing.T) {
	a := newTestAggregator(nil)
	filed := testClock()().Add(-48 * time.Hour)

	// CFO sale under the inverse strategy becomes a bot BUY.
	decisions := a.Aggregate([]models.Signal{
		insiderSignal("ACME", "CFO", models.DirectionSell, 500_000, filed),
	})

	require.Len(t, decisions, 1)
	d := decisions["ACME"]
	assert.Equal(t, models.TierInsiderOnly, d.Tier)
	assert.Equal(t, models.DirectionBuy, d.Direction)
	assert.Equal(t, 0.5, d.SizeMultiplier)
	assert.InDelta(t, 0.705, d.Confidence, 0.001) // CFO 0.7 + size bump
}

func TestAggregateCongressBeatsInsider(t *testing.T) {
	a := newTestAggregator(nil)
	filed := testClock()().Add(-48 * time.Hour)

	decisions := a.Aggregate([]models.Signal{
		insiderSignal("ACME", "CEO", models.DirectionBuy, 500_000, filed),
		congressSignal("ACME", models.DirectionBuy, 50_000, filed),
	})

	require.Len(t, decisions, 1)
	d := decisions["ACME"]
	assert.Equal(t, models.TierCongressOnly, d.Tier)
	assert.Equal(t, 1.0, d.SizeMultiplier)
	// Congress runs under normal strategy in the test config.
	assert.Equal(t, models.DirectionBuy, d.Direction)
}

func TestAggregateStrongNewsCombo(t *testing.T) {
	a := newTestAggregator(nil)
	now := testClock()()
	filed := now.Add(-48 * time.Hour)

	decisions := a.Aggregate([]models.Signal{
		congressSignal("ACME", models.DirectionBuy, 50_000, filed),
		newsSignal("ACME", 0.8, 0.9, now.Add(-time.Hour)),
	})

	require.Len(t, decisions, 1)
	d := decisions["ACME"]
	assert.Equal(t, models.TierStrongNewsCombo, d.Tier)
	assert.Equal(t, models.DirectionBuy, d.Direction)
	assert.Equal(t, 2.0, d.SizeMultiplier)
	assert.InDelta(t, (0.9+0.6)/2, d.Confidence, 0.05)
	assert.Len(t, d.Contributing, 2)
}

func TestAggregateWeakNewsDoesNotCombo(t *testing.T) {
	a := newTestAggregator(nil)
	now := testClock()()
	filed := now.Add(-48 * time.Hour)

	// News confidence below the 0.7 threshold cannot form tier 1.
	decisions := a.Aggregate([]models.Signal{
		congressSignal("ACME", models.DirectionBuy, 50_000, filed),
		newsSignal("ACME", 0.8, 0.6, now.Add(-time.Hour)),
	})

	require.Len(t, decisions, 1)
	assert.Equal(t, models.TierCongressOnly, decisions["ACME"].Tier)
}

func TestAggregateDisagreeingNewsFallsThrough(t *testing.T) {
	a := newTestAggregator(nil)
	now := testClock()()
	filed := now.Add(-48 * time.Hour)

	// Strong bearish news vs congress buy: no agreement, so tier 2 wins.
	decisions := a.Aggregate([]models.Signal{
		congressSignal("ACME", models.DirectionBuy, 50_000, filed),
		newsSignal("ACME", -0.8, 0.9, now.Add(-time.Hour)),
	})

	require.Len(t, decisions, 1)
	assert.Equal(t, models.TierCongressOnly, decisions["ACME"].Tier)
}

func TestAggregatePreFilters(t *testing.T) {
	now := testClock()()
	recent := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	t.Run("insider below minimum size", func(t *testing.T) {
		a := newTestAggregator(nil)
		decisions := a.Aggregate([]models.Signal{
			insiderSignal("ACME", "CEO", models.DirectionBuy, 100_000, old),
		})
		assert.Empty(t, decisions)
	})

	t.Run("congress above maximum size", func(t *testing.T) {
		a := newTestAggregator(nil)
		decisions := a.Aggregate([]models.Signal{
			congressSignal("ACME", models.DirectionBuy, 2_000_000, old),
		})
		assert.Empty(t, decisions)
	})

	t.Run("signal inside delay window", func(t *testing.T) {
		a := newTestAggregator(nil)
		decisions := a.Aggregate([]models.Signal{
			insiderSignal("ACME", "CEO", models.DirectionBuy, 500_000, recent),
		})
		assert.Empty(t, decisions)
	})

	t.Run("blacklisted sector", func(t *testing.T) {
		a := newTestAggregator(&configOverride{blacklist: []string{"Defense"}})
		sig := insiderSignal("ACME", "CEO", models.DirectionBuy, 500_000, old)
		sig.Sector = "Defense"
		decisions := a.Aggregate([]models.Signal{sig})
		assert.Empty(t, decisions)
	})
}

func TestAggregateDropsMalformedSignals(t *testing.T) {
	a := newTestAggregator(nil)
	old := testClock()().Add(-48 * time.Hour)

	bad := insiderSignal("", "CEO", models.DirectionBuy, 500_000, old)
	badConf := insiderSignal("ACME", "CEO", models.DirectionBuy, 500_000, old)
	badConf.Confidence = 1.5
	good := congressSignal("GOOD", models.DirectionBuy, 50_000, old)

	decisions := a.Aggregate([]models.Signal{bad, badConf, good})

	require.Len(t, decisions, 1)
	assert.Contains(t, decisions, "GOOD")
}

func TestAggregateDisabledSourceProducesNothing(t *testing.T) {
	a := newTestAggregator(&configOverride{insiderStrategy: "disabled", congressStrategy: "disabled"})
	old := testClock()().Add(-48 * time.Hour)

	decisions := a.Aggregate([]models.Signal{
		insiderSignal("ACME", "CEO", models.DirectionBuy, 500_000, old),
		congressSignal("ACME", models.DirectionBuy, 50_000, old),
	})
	assert.Empty(t, decisions)
}

func TestAggregateFOMCBlackout(t *testing.T) {
	a := newTestAggregator(&configOverride{skipFOMC: true})
	// 2024-06-05 is inside the blackout before the 2024-06-11 meeting.
	inside := time.Date(2024, 6, 5, 16, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time { return inside })

	decisions := a.Aggregate([]models.Signal{
		congressSignal("ACME", models.DirectionBuy, 50_000, inside.Add(-48*time.Hour)),
	})
	assert.Empty(t, decisions)
}

func TestSortByPreferenceTieBreaks(t *testing.T) {
	now := testClock()()

	high := models.EffectiveSignal{Signal: models.Signal{Confidence: 0.9, Timestamp: now.Add(-72 * time.Hour)}}
	recent := models.EffectiveSignal{Signal: models.Signal{Confidence: 0.6, Timestamp: now.Add(-24 * time.Hour)}}
	older := models.EffectiveSignal{Signal: models.Signal{Confidence: 0.6, Timestamp: now.Add(-48 * time.Hour), Magnitude: 100}}
	olderBig := models.EffectiveSignal{Signal: models.Signal{Confidence: 0.6, Timestamp: now.Add(-48 * time.Hour), Magnitude: 500}}

	effs := []models.EffectiveSignal{older, olderBig, recent, high}
	sortByPreference(effs)

	// Confidence first, then recency, then magnitude.
	assert.Equal(t, 0.9, effs[0].Confidence)
	assert.Equal(t, recent.Timestamp, effs[1].Timestamp)
	assert.Equal(t, 500.0, effs[2].Magnitude)
	assert.Equal(t, 100.0, effs[3].Magnitude)
}

func TestInFOMCBlackout(t *testing.T) {
	// June 11-12 2024 is a two-day meeting; the calendar lists day one.
	meeting := time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC)

	assert.True(t, InFOMCBlackout(meeting))
	assert.True(t, InFOMCBlackout(meeting.AddDate(0, 0, -10)))
	assert.False(t, InFOMCBlackout(meeting.AddDate(0, 0, -11)))
	// Day two is still inside the window, the day after is not.
	assert.True(t, InFOMCBlackout(meeting.AddDate(0, 0, 1)))
	assert.False(t, InFOMCBlackout(meeting.AddDate(0, 0, 2)))
	assert.False(t, InFOMCBlackout(time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)))
}
