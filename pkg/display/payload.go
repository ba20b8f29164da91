// Package display renders samples into AWTRIX custom-app blocks and sends
// them to the clock.
package display

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raterudder/energymatrix/pkg/types"
)

// Icon ids from the LaMetric icon gallery.
const (
	IconPV       = 18363
	IconAC       = 403
	IconYield    = 37515
	IconHumidity = 863
	IconPressure = 62630
)

// Block is one page of the custom app.
type Block struct {
	Icon int    `json:"icon,omitempty"`
	Text string `json:"text"`
	// Lifetime in seconds after which the clock drops the page if no update
	// arrives.
	Lifetime int          `json:"lifetime,omitempty"`
	Draw     []FilledRect `json:"draw,omitempty"`
}

// FilledRect is the AWTRIX "df" draw instruction.
type FilledRect struct {
	X, Y, W, H int
	Color      string
}

// MarshalJSON encodes the rect as {"df":[x,y,w,h,color]}.
func (r FilledRect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DF [5]any `json:"df"`
	}{DF: [5]any{r.X, r.Y, r.W, r.H, r.Color}})
}

// Builder maps samples to blocks.
type Builder struct {
	Lifetime time.Duration
}

// Build returns the blocks for s in display order. Optional values that are
// missing from the sample are skipped.
func (b Builder) Build(s types.Sample) []Block {
	lifetime := int(b.Lifetime / time.Second)
	blocks := []Block{
		{Icon: IconPV, Text: FormatWatt(s.PVPower)},
		{Icon: IconAC, Text: FormatWatt(s.ACPower)},
	}
	if s.PVYield != nil {
		blocks = append(blocks, Block{Icon: IconYield, Text: fmt.Sprintf("%.1f kWh", *s.PVYield)})
	}
	blocks = append(blocks, Block{
		Icon: s.BatteryTier.Icon,
		Text: fmt.Sprintf("%d %%", int(s.BatterySOC)),
	})
	if s.Price != nil {
		blocks = append(blocks, Block{
			Icon: s.Price.Tier.Icon,
			Text: fmt.Sprintf("%.2f", s.Price.Price),
			Draw: priceChart(s.Price.Bars),
		})
	}
	if s.Weather != nil {
		if s.TemperatureTier != nil {
			blocks = append(blocks, Block{
				Icon: s.TemperatureTier.Icon,
				Text: fmt.Sprintf("%.1f", s.Weather.Temperature),
			})
		}
		blocks = append(blocks,
			Block{Icon: IconHumidity, Text: fmt.Sprintf("%.0f %%", s.Weather.Humidity)},
			Block{Icon: IconPressure, Text: fmt.Sprintf("%.0f", s.Weather.Pressure)},
		)
	}
	for i := range blocks {
		blocks[i].Lifetime = lifetime
	}
	return blocks
}

func priceChart(bars []types.Bar) []FilledRect {
	if len(bars) == 0 {
		return nil
	}
	rects := make([]FilledRect, len(bars))
	for i, bar := range bars {
		rects[i] = FilledRect{X: bar.X, Y: bar.Y, W: 1, H: bar.Height, Color: bar.Color}
	}
	return rects
}
