package tier

import (
	"fmt"
	"math"
)

// Price tiers, in currency per kWh after the pricing plan is applied.
var (
	PriceGreen  = Tier{Name: "green", Icon: 3961, Color: "#00FF00"}
	PriceYellow = Tier{Name: "yellow", Icon: 6256, Color: "#FFFF00"}
	PriceRed    = Tier{Name: "red", Icon: 3813, Color: "#FF0000"}

	PriceRules = MustRules(
		Boundary{From: math.Inf(-1), Tier: PriceGreen},
		Boundary{From: 0.30, Tier: PriceYellow},
		Boundary{From: 0.40, Tier: PriceRed},
	)
)

const (
	batteryIconBase     = 6354
	temperatureIconBase = 21750
)

// BatteryRules splits state of charge into five icons: [0,25), [25,50),
// [50,75), [75,100) and full. Icon is batteryIconBase + index.
var BatteryRules = MustRules(
	batteryBoundary(math.Inf(-1), 0),
	batteryBoundary(25, 1),
	batteryBoundary(50, 2),
	batteryBoundary(75, 3),
	batteryBoundary(100, 4),
)

func batteryBoundary(from float64, idx int) Boundary {
	return Boundary{
		From: from,
		Tier: Tier{Name: fmt.Sprintf("battery%d", idx), Icon: batteryIconBase + idx},
	}
}

// TemperatureRules is clamp(floor((t+20)/10), 0, 5) expressed as boundaries.
// The icon set counts down from temperatureIconBase.
var TemperatureRules = MustRules(
	temperatureBoundary(math.Inf(-1), 0),
	temperatureBoundary(-10, 1),
	temperatureBoundary(0, 2),
	temperatureBoundary(10, 3),
	temperatureBoundary(20, 4),
	temperatureBoundary(30, 5),
)

func temperatureBoundary(from float64, idx int) Boundary {
	return Boundary{
		From: from,
		Tier: Tier{Name: fmt.Sprintf("temperature%d", idx), Icon: temperatureIconBase - idx},
	}
}

// Price classifies a price per kWh.
func Price(v float64) Tier {
	return PriceRules.Classify(v)
}

// Battery classifies a state of charge in percent.
func Battery(soc float64) Tier {
	return BatteryRules.Classify(soc)
}

// Temperature classifies an outside temperature in degrees Celsius.
func Temperature(c float64) Tier {
	return TemperatureRules.Classify(c)
}
