package types

import "time"

// DeviceReading holds the raw registers read from the energy-management
// device during one poll cycle.
type DeviceReading struct {
	Timestamp time.Time `json:"timestamp"`

	// AC consumption per phase in watts.
	L1 uint16 `json:"l1"`
	L2 uint16 `json:"l2"`
	L3 uint16 `json:"l3"`

	// PVPower is the DC-coupled PV power in watts.
	PVPower uint16 `json:"pvPower"`

	// BatterySOCRaw is the state of charge in tenths of a percent.
	BatterySOCRaw uint16 `json:"batterySOCRaw"`

	// YieldRaw is the cumulative yield per PV meter in tenths of a kWh. Empty
	// when no yield meters are configured.
	YieldRaw []uint16 `json:"yieldRaw,omitempty"`
}

// ACPower returns the total AC consumption across all phases in watts.
func (r DeviceReading) ACPower() float64 {
	return float64(r.L1) + float64(r.L2) + float64(r.L3)
}

// PVPowerW returns the PV power in watts.
func (r DeviceReading) PVPowerW() float64 {
	return float64(r.PVPower)
}

// BatterySOC returns the state of charge in percent.
func (r DeviceReading) BatterySOC() float64 {
	return float64(r.BatterySOCRaw) / 10
}

// PVYield returns the summed yield of all meters in kWh. The bool is false if
// no meters were read.
func (r DeviceReading) PVYield() (float64, bool) {
	if len(r.YieldRaw) == 0 {
		return 0, false
	}
	var sum float64
	for _, y := range r.YieldRaw {
		sum += float64(y)
	}
	return sum / 10, true
}
