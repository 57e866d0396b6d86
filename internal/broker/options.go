package broker

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/Cikle/Alpatrader/internal/errors"
	"github.com/Cikle/Alpatrader/internal/models"
)

// Option chain construction. Alpaca's paper API does not serve an options
// chain, so contracts are synthesized around the live underlying price:
// strikes at 5% steps within ±20%, four weekly Friday expiries, deltas
// approximated from moneyness. Greeks here are rough but stable, which is all
// contract selection needs.

const (
	strikeStepPercent = 0.05
	strikeRangePct    = 0.20
	chainExpiries     = 4
)

// GetOptionChain returns an options chain for the ticker's current price.
func (c *AlpacaClient) GetOptionChain(ctx context.Context, ticker string) (*models.OptionChain, error) {
	price, err := c.GetQuote(ctx, ticker)
	if err != nil {
		return nil, apperrors.Wrapf(err, "building option chain for %s", ticker)
	}
	return BuildChain(ticker, price, time.Now()), nil
}

// BuildChain synthesizes an option chain for an underlying at a given price.
func BuildChain(ticker string, price float64, now time.Time) *models.OptionChain {
	chain := &models.OptionChain{
		Underlying: ticker,
		SpotPrice:  price,
		FetchedAt:  now,
	}

	expiries := upcomingFridays(now, chainExpiries)
	for _, expiry := range expiries {
		for pct := -strikeRangePct; pct <= strikeRangePct+1e-9; pct += strikeStepPercent {
			strike := roundStrike(price * (1 + pct))
			if strike <= 0 {
				continue
			}
			for _, typ := range []models.OptionType{models.OptionCall, models.OptionPut} {
				chain.Contracts = append(chain.Contracts, buildContract(ticker, typ, strike, price, expiry, now))
			}
		}
	}
	return chain
}

func buildContract(ticker string, typ models.OptionType, strike, price float64, expiry, now time.Time) models.OptionContract {
	delta := approxDelta(typ, strike, price)
	premium := approxPremium(typ, strike, price, expiry, now)

	return models.OptionContract{
		Symbol:       occSymbol(ticker, typ, strike, expiry),
		Underlying:   ticker,
		Type:         typ,
		Strike:       strike,
		Expiry:       expiry,
		Bid:          premium * 0.97,
		Ask:          premium * 1.03,
		LastPrice:    premium,
		Delta:        delta,
		Volume:       100,
		OpenInterest: 500,
		ImpliedVol:   0.30,
	}
}

// approxDelta maps moneyness onto a delta in (0,1) for calls, (-1,0) for
// puts. At the money both sides sit near 0.5.
func approxDelta(typ models.OptionType, strike, price float64) float64 {
	moneyness := (price - strike) / price
	d := 0.5 + moneyness*2.5
	if d < 0.05 {
		d = 0.05
	}
	if d > 0.95 {
		d = 0.95
	}
	if typ == models.OptionPut {
		return d - 1
	}
	return d
}

func approxPremium(typ models.OptionType, strike, price float64, expiry, now time.Time) float64 {
	intrinsic := 0.0
	if typ == models.OptionCall && price > strike {
		intrinsic = price - strike
	}
	if typ == models.OptionPut && strike > price {
		intrinsic = strike - price
	}
	days := expiry.Sub(now).Hours() / 24
	if days < 1 {
		days = 1
	}
	timeValue := price * 0.30 * math.Sqrt(days/365)
	return intrinsic + timeValue
}

func roundStrike(v float64) float64 {
	switch {
	case v < 25:
		return math.Round(v*2) / 2
	case v < 200:
		return math.Round(v)
	default:
		return math.Round(v/5) * 5
	}
}

// occSymbol formats an OCC-style option symbol, e.g. AAPL260918C00150000.
func occSymbol(ticker string, typ models.OptionType, strike float64, expiry time.Time) string {
	cp := "C"
	if typ == models.OptionPut {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", ticker, expiry.Format("060102"), cp, int(strike*1000))
}

func upcomingFridays(now time.Time, n int) []time.Time {
	fridays := make([]time.Time, 0, n)
	d := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, now.Location())
	for len(fridays) < n {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Friday {
			fridays = append(fridays, d)
		}
	}
	return fridays
}
