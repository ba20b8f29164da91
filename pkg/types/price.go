package types

import (
	"time"

	"github.com/raterudder/energymatrix/pkg/tier"
)

// PricePoint is the raw market price for the hour starting at Start.
type PricePoint struct {
	Start time.Time `json:"start"`
	// Raw is the market price as published, typically per MWh.
	Raw float64 `json:"raw"`
}

// PriceSeries is an hour-aligned, strictly increasing list of prices for a
// bidding zone.
type PriceSeries struct {
	Zone   string       `json:"zone"`
	Unit   string       `json:"unit"`
	Points []PricePoint `json:"points"`
}

// Index returns the position of the point starting at hour, or -1.
func (s PriceSeries) Index(hour time.Time) int {
	for i, p := range s.Points {
		if p.Start.Equal(hour) {
			return i
		}
	}
	return -1
}

// Bar is one column of the price trend chart.
type Bar struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Height int     `json:"height"`
	Raw    float64 `json:"raw"`
	Price  float64 `json:"price"`
	Color  string  `json:"color"`
}

// PriceInfo is the price data derived for one hour.
type PriceInfo struct {
	Hour time.Time `json:"hour"`
	Raw  float64   `json:"raw"`
	// Price is the end-customer price per kWh after the pricing plan.
	Price float64   `json:"price"`
	Tier  tier.Tier `json:"tier"`
	Bars  []Bar     `json:"bars"`
}
