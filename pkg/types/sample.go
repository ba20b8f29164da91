package types

import (
	"time"

	"github.com/raterudder/energymatrix/pkg/tier"
)

// Sample is everything rendered to the display for one poll cycle. A Sample is
// built once and not modified afterwards.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`

	ACPower float64 `json:"acPower"`
	PVPower float64 `json:"pvPower"`
	// PVYield is nil if no yield meters are configured.
	PVYield *float64 `json:"pvYield,omitempty"`

	BatterySOC  float64   `json:"batterySOC"`
	BatteryTier tier.Tier `json:"batteryTier"`

	Price *PriceInfo `json:"price,omitempty"`

	// Weather and TemperatureTier are nil if no weather station is configured.
	Weather         *Weather   `json:"weather,omitempty"`
	TemperatureTier *tier.Tier `json:"temperatureTier,omitempty"`
}
