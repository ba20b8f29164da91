package utility

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/raterudder/energymatrix/pkg/tier"
	"github.com/raterudder/energymatrix/pkg/types"
)

// ErrPriceNotFound is returned when the series has no price for the requested
// hour, typically because the next day is not published yet or the clock is
// off.
var ErrPriceNotFound = errors.New("price for current hour not found")

const (
	// ChartWindow is the number of bars: the current hour and up to ten more.
	ChartWindow = 11
	// MaxBarHeight is the tallest bar; the shortest is 1.
	MaxBarHeight = 8
	// FlatBarHeight is used for every bar when the window has no spread.
	FlatBarHeight = 4

	barSpacing = 2
)

// ChartLayout positions the price bars on the display.
type ChartLayout struct {
	// StartX is the column of the first bar.
	StartX int `json:"startX"`
	// Baseline is the row below the bottom of the bars.
	Baseline int `json:"baseline"`
}

// DefaultChartLayout fits 11 bars on the right of a 32x8 matrix.
var DefaultChartLayout = ChartLayout{
	StartX:   10,
	Baseline: 8,
}

// Compute derives the current price, its tier and the trend chart for hour.
func Compute(series types.PriceSeries, hour time.Time, plan Plan, layout ChartLayout) (types.PriceInfo, error) {
	idx := series.Index(hour)
	if idx < 0 {
		return types.PriceInfo{}, fmt.Errorf("%w: %s in %s", ErrPriceNotFound, hour.UTC().Format(time.RFC3339), series.Zone)
	}

	current := series.Points[idx]
	price := plan.Apply(current.Raw)

	return types.PriceInfo{
		Hour:  current.Start,
		Raw:   current.Raw,
		Price: price,
		Tier:  tier.Price(Cents(price)),
		Bars:  bars(window(series.Points, idx), plan, layout),
	}, nil
}

// Cents rounds p to the two decimals shown on the display. It formats the
// same way as the "%.2f" verb so the tier always matches the printed text.
func Cents(p float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(p, 'f', 2, 64), 64)
	if err != nil {
		return p
	}
	return v
}

// window returns the point at idx and the directly following hours, up to
// ChartWindow points. It stops at the first missing hour so every bar is one
// hour apart.
func window(points []types.PricePoint, idx int) []types.PricePoint {
	end := idx + 1
	for end < len(points) && end-idx < ChartWindow {
		if !points[end].Start.Equal(points[end-1].Start.Add(time.Hour)) {
			break
		}
		end++
	}
	return points[idx:end]
}

func bars(window []types.PricePoint, plan Plan, layout ChartLayout) []types.Bar {
	if len(window) == 0 {
		return nil
	}
	lo, hi := window[0].Raw, window[0].Raw
	for _, p := range window[1:] {
		lo = math.Min(lo, p.Raw)
		hi = math.Max(hi, p.Raw)
	}

	out := make([]types.Bar, len(window))
	for i, p := range window {
		height := FlatBarHeight
		if hi > lo {
			height = int(math.Round((p.Raw-lo)/(hi-lo)*(MaxBarHeight-1))) + 1
		}
		price := plan.Apply(p.Raw)
		out[i] = types.Bar{
			X:      layout.StartX + i*barSpacing,
			Y:      layout.Baseline - height,
			Height: height,
			Raw:    p.Raw,
			Price:  price,
			Color:  tier.Price(Cents(price)).Color,
		}
	}
	return out
}
