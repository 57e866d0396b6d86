package models

import "time"

// OptionType represents the contract type.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract represents a single tradeable option contract.
type OptionContract struct {
	Symbol       string
	Underlying   string
	Type         OptionType
	Strike       float64
	Expiry       time.Time
	Bid          float64
	Ask          float64
	LastPrice    float64
	Delta        float64 // negative for puts
	Volume       int64
	OpenInterest int64
	ImpliedVol   float64
}

// DaysToExpiry returns whole days from now until contract expiry.
func (c OptionContract) DaysToExpiry(now time.Time) int {
	d := int(c.Expiry.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// OptionChain represents the available contracts for an underlying.
type OptionChain struct {
	Underlying string
	SpotPrice  float64
	Contracts  []OptionContract
	FetchedAt  time.Time
}

// ByType returns the contracts of the given type.
func (ch OptionChain) ByType(t OptionType) []OptionContract {
	var out []OptionContract
	for _, c := range ch.Contracts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
