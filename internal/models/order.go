package models

import "time"

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// AssetClass distinguishes equity orders from option orders.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetOption AssetClass = "option"
)

// Order represents a trading order before submission.
type Order struct {
	Ticker       string
	Side         OrderSide
	Type         OrderType
	Class        AssetClass
	Quantity     int // shares, or option contracts
	LimitPrice   float64
	OptionSymbol string // set for option orders
	TimeInForce  string // day, gtc
	Tag          string
	SubmittedAt  time.Time
}

// OrderResult represents the broker's response to an order submission.
type OrderResult struct {
	OrderID  string
	Accepted bool
	Status   string
	Reason   string
}

// HistoricalOrder is a past order as reported by the broker, used for
// entry-time estimation.
type HistoricalOrder struct {
	ID             string
	Ticker         string
	Side           OrderSide
	Quantity       int
	Status         string
	FilledAvgPrice float64
	CreatedAt      time.Time
	FilledAt       time.Time
}

// Position represents an open position snapshot from the broker. The engine
// never mutates positions; only broker fills do.
type Position struct {
	Ticker       string
	Quantity     int // signed, negative = short
	EntryPrice   float64
	EntryTime    time.Time // zero when the broker does not report it
	CurrentPrice float64
	MarketValue  float64
	UnrealizedPL float64
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool { return p.Quantity > 0 }

// AbsQuantity returns the unsigned share count.
func (p Position) AbsQuantity() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// PLPercent returns unrealized P&L percent relative to entry, signed by
// position direction.
func (p Position) PLPercent() float64 {
	if p.EntryPrice == 0 || p.Quantity == 0 {
		return 0
	}
	pl := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Quantity < 0 {
		pl = -pl
	}
	return pl
}

// Account represents broker account state.
type Account struct {
	Equity      float64
	BuyingPower float64
	Cash        float64
}
