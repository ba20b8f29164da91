package utility

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the price provider, pricing plan and chart layout based
// on flags. The returned plan and layout are filled in once flags are parsed.
func Configured() (*EnergyCharts, *Plan, *ChartLayout) {
	c := configuredEnergyCharts()

	plan := DefaultPlan
	lflag.JSON(&plan, "price-plan", DefaultPlan, `JSON pricing plan, e.g. {"markup":1.19,"surcharge":0.1978}`)
	layout := DefaultChartLayout
	lflag.JSON(&layout, "price-chart", DefaultChartLayout, `JSON price chart layout, e.g. {"startX":10,"baseline":8}`)

	lflag.Do(func() {
		if err := plan.Validate(); err != nil {
			panic(fmt.Sprintf("invalid price-plan: %v", err))
		}
	})

	return c, &plan, &layout
}
