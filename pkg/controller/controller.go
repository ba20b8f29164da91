// Package controller runs a single poll cycle: read the device, resolve the
// cached price and weather data and assemble the sample for the display.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raterudder/energymatrix/pkg/cache"
	"github.com/raterudder/energymatrix/pkg/ess"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/tier"
	"github.com/raterudder/energymatrix/pkg/types"
	"github.com/raterudder/energymatrix/pkg/utility"
	"github.com/raterudder/energymatrix/pkg/weather"
)

const (
	// PriceBucket is how long a computed price stays valid.
	PriceBucket = time.Hour
	// WeatherBucket is how long a weather reading stays valid.
	WeatherBucket = 5 * time.Minute
)

// Stage names the step of a cycle that failed.
type Stage string

const (
	StageDevice  Stage = "device"
	StagePrice   Stage = "price"
	StageWeather Stage = "weather"
)

// StageError is returned by Cycle and records which step failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage a Cycle error came from, or "" if err did not come
// from Cycle.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Options tune a Controller. The zero value is usable.
type Options struct {
	// Now overrides time.Now for the cycle timestamp and both caches.
	Now func() time.Time
	// StaleFallback serves the last cached price or weather when a refresh
	// fails instead of aborting the cycle.
	StaleFallback bool
	// CacheObserver is called with the cache name and outcome of every cache
	// lookup.
	CacheObserver func(name string, o cache.Outcome)
}

// Controller assembles samples from the device, price and weather sources.
type Controller struct {
	system  ess.System
	prices  utility.Provider
	plan    utility.Plan
	layout  utility.ChartLayout
	station weather.Station

	priceCache   *cache.Bucket[types.PriceInfo]
	weatherCache *cache.Bucket[types.Weather]
	now          func() time.Time
}

// New creates a Controller. station may be nil when no weather source is
// configured.
func New(
	system ess.System,
	prices utility.Provider,
	plan utility.Plan,
	layout utility.ChartLayout,
	station weather.Station,
	opts Options,
) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		system:  system,
		prices:  prices,
		plan:    plan,
		layout:  layout,
		station: station,
		now:     opts.Now,
	}
	c.priceCache = cache.New[types.PriceInfo]("price", PriceBucket, cacheOptions("price", opts)...)
	c.weatherCache = cache.New[types.Weather]("weather", WeatherBucket, cacheOptions("weather", opts)...)
	return c
}

func cacheOptions(name string, opts Options) []cache.Option {
	o := []cache.Option{
		cache.WithClock(opts.Now),
		cache.WithStaleFallback(opts.StaleFallback),
	}
	if opts.CacheObserver != nil {
		observer := opts.CacheObserver
		o = append(o, cache.WithObserver(func(outcome cache.Outcome) {
			observer(name, outcome)
		}))
	}
	return o
}

// Cycle runs one poll cycle and returns the assembled sample. Any failing step
// aborts the cycle with a *StageError and leaves the caches as they were.
func (c *Controller) Cycle(ctx context.Context) (types.Sample, error) {
	reading, err := c.system.GetReading(ctx)
	if err != nil {
		return types.Sample{}, &StageError{Stage: StageDevice, Err: err}
	}
	reading.Timestamp = c.now()

	price, err := c.priceCache.GetOrRefresh(ctx, c.refreshPrice)
	if err != nil {
		return types.Sample{}, &StageError{Stage: StagePrice, Err: err}
	}

	var w *types.Weather
	if c.station != nil {
		current, err := c.weatherCache.GetOrRefresh(ctx, func(ctx context.Context, _ time.Time) (types.Weather, error) {
			return c.station.GetWeather(ctx)
		})
		if err != nil {
			return types.Sample{}, &StageError{Stage: StageWeather, Err: err}
		}
		w = &current
	}

	sample := Assemble(reading, &price, w)
	log.Ctx(ctx).DebugContext(
		ctx,
		"assembled sample",
		slog.Float64("acPower", sample.ACPower),
		slog.Float64("pvPower", sample.PVPower),
		slog.Float64("batterySOC", sample.BatterySOC),
		slog.Float64("price", price.Price),
		slog.String("priceTier", price.Tier.Name),
	)
	return sample, nil
}

func (c *Controller) refreshPrice(ctx context.Context, hour time.Time) (types.PriceInfo, error) {
	series, err := c.prices.GetPriceSeries(ctx, hour)
	if err != nil {
		return types.PriceInfo{}, err
	}
	info, err := utility.Compute(series, hour, c.plan, c.layout)
	if err != nil {
		return types.PriceInfo{}, err
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"refreshed price",
		slog.Time("hour", hour),
		slog.Float64("raw", info.Raw),
		slog.Float64("price", info.Price),
		slog.Int("bars", len(info.Bars)),
	)
	return info, nil
}

// Assemble derives the sample from a device reading and the optional price and
// weather data. It does not modify its arguments.
func Assemble(reading types.DeviceReading, price *types.PriceInfo, w *types.Weather) types.Sample {
	soc := reading.BatterySOC()
	s := types.Sample{
		Timestamp:   reading.Timestamp,
		ACPower:     reading.ACPower(),
		PVPower:     reading.PVPowerW(),
		BatterySOC:  soc,
		BatteryTier: tier.Battery(soc),
	}
	if y, ok := reading.PVYield(); ok {
		s.PVYield = &y
	}
	if price != nil {
		p := *price
		p.Bars = append([]types.Bar(nil), price.Bars...)
		s.Price = &p
	}
	if w != nil {
		copied := *w
		t := tier.Temperature(copied.Temperature)
		s.Weather = &copied
		s.TemperatureTier = &t
	}
	return s
}
