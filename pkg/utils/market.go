package utils

import (
	"time"
)

// MarketStatus represents the current US equity market session.
type MarketStatus string

const (
	MarketOpen      MarketStatus = "OPEN"
	MarketPreMarket MarketStatus = "PRE_MARKET"
	MarketClosed    MarketStatus = "CLOSED"
)

// NewYorkLocation is the timezone for US markets.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// GetMarketStatusAt returns the market status at the given instant. Regular
// session is 9:30-16:00 ET Monday through Friday; pre-market 4:00-9:30 ET.
func GetMarketStatusAt(t time.Time) MarketStatus {
	now := t.In(NewYorkLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return MarketClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	// Pre-market: 4:00 - 9:30
	if timeMinutes >= 240 && timeMinutes < 570 {
		return MarketPreMarket
	}

	// Regular session: 9:30 - 16:00
	if timeMinutes >= 570 && timeMinutes < 960 {
		return MarketOpen
	}

	return MarketClosed
}

// GetMarketStatus returns the current market status.
func GetMarketStatus() MarketStatus {
	return GetMarketStatusAt(time.Now())
}

// IsMarketOpen returns true if the regular session is currently open.
func IsMarketOpen() bool {
	return GetMarketStatus() == MarketOpen
}

// GetNextMarketOpen returns the next regular session opening time.
func GetNextMarketOpen() time.Time {
	now := time.Now().In(NewYorkLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, NewYorkLocation)
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// GetMarketClose returns today's regular session close time.
func GetMarketClose() time.Time {
	now := time.Now().In(NewYorkLocation)
	return time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, NewYorkLocation)
}
