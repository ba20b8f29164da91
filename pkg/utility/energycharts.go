package utility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/common"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/types"
)

var (
	// ErrPriceFetch is returned when the price API could not be reached or
	// returned an unusable response.
	ErrPriceFetch = errors.New("price fetch failed")
)

var _ Provider = (*EnergyCharts)(nil)

// EnergyCharts implements Provider using the energy-charts.info price API.
type EnergyCharts struct {
	apiURL        string
	zone          string
	location      *time.Location
	lookaheadDays int
	client        *http.Client
}

// configuredEnergyCharts sets up flags for energy-charts and returns the
// instance. Values are filled in once flags are parsed.
func configuredEnergyCharts() *EnergyCharts {
	c := &EnergyCharts{
		client:        common.HTTPClient(10 * time.Second),
		lookaheadDays: 1,
	}
	apiURL := lflag.String("price-api-url", "https://api.energy-charts.info/price", "URL for the energy-charts price API")
	zone := lflag.String("price-bidding-zone", "DE-LU", "Bidding zone to request prices for")
	tz := lflag.String("price-timezone", "Europe/Berlin", "Time zone used to compute the requested end date")
	timeout := lflag.Duration("price-timeout", 10*time.Second, "Timeout for price API requests")

	lflag.Do(func() {
		c.apiURL = *apiURL
		c.zone = *zone
		c.client = common.HTTPClient(*timeout)
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid price-timezone (%s): %v", *tz, err))
		}
		c.location = loc
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("energy-charts validation failed: %v", err))
		}
	})

	return c
}

// Validate ensures the configuration is valid.
func (c *EnergyCharts) Validate() error {
	if c.apiURL == "" {
		return errors.New("price-api-url is required")
	}
	if _, err := url.Parse(c.apiURL); err != nil {
		return fmt.Errorf("failed to parse price url (%s): %w", c.apiURL, err)
	}
	if c.zone == "" {
		return errors.New("price-bidding-zone is required")
	}
	return nil
}

// energyChartsResponse is the relevant subset of the /price response. Prices
// can be null for slots that are not published yet.
type energyChartsResponse struct {
	UnixSeconds []int64    `json:"unix_seconds"`
	Price       []*float64 `json:"price"`
	Unit        string     `json:"unit"`
}

// GetPriceSeries requests prices up to the end of the day after hour so the
// chart window can extend past midnight once the next day is published.
func (c *EnergyCharts) GetPriceSeries(ctx context.Context, hour time.Time) (types.PriceSeries, error) {
	loc := c.location
	if loc == nil {
		loc = time.UTC
	}
	end := hour.In(loc).AddDate(0, 0, c.lookaheadDays).Format("2006-01-02")

	u, err := url.Parse(c.apiURL)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("%w: invalid api url: %w", ErrPriceFetch, err)
	}
	q := u.Query()
	q.Set("bzn", c.zone)
	q.Set("end", end)
	u.RawQuery = q.Encode()

	log.Ctx(ctx).DebugContext(ctx, "fetching prices from energy-charts", slog.String("url", u.String()))

	var res energyChartsResponse
	if err := common.GetJSON(ctx, c.client, u.String(), &res); err != nil {
		return types.PriceSeries{}, fmt.Errorf("%w: %s: %w", ErrPriceFetch, c.zone, err)
	}
	if len(res.UnixSeconds) != len(res.Price) {
		return types.PriceSeries{}, fmt.Errorf(
			"%w: mismatched response lengths (%d timestamps, %d prices)",
			ErrPriceFetch, len(res.UnixSeconds), len(res.Price),
		)
	}

	series := types.PriceSeries{
		Zone:   c.zone,
		Unit:   res.Unit,
		Points: hourlyAverages(ctx, res.UnixSeconds, res.Price),
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched prices",
		slog.String("zone", c.zone),
		slog.String("end", end),
		slog.Int("rawCount", len(res.Price)),
		slog.Int("hours", len(series.Points)),
	)
	return series, nil
}

// hourlyAverages groups sub-hourly slots into the hour they start in and
// averages them. Slots without a price are skipped.
func hourlyAverages(ctx context.Context, ts []int64, prices []*float64) []types.PricePoint {
	type hourlyData struct {
		sum   float64
		count int
	}
	hours := make(map[int64]*hourlyData)

	for i, sec := range ts {
		if prices[i] == nil {
			continue
		}
		key := sec - ((sec%3600)+3600)%3600
		h, ok := hours[key]
		if !ok {
			h = &hourlyData{}
			hours[key] = h
		}
		h.sum += *prices[i]
		h.count++
	}

	points := make([]types.PricePoint, 0, len(hours))
	for key, h := range hours {
		points = append(points, types.PricePoint{
			Start: time.Unix(key, 0).UTC(),
			Raw:   h.sum / float64(h.count),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Start.Before(points[j].Start)
	})

	if len(points) != len(ts) {
		log.Ctx(ctx).DebugContext(
			ctx,
			"aggregated price slots into hours",
			slog.Int("slots", len(ts)),
			slog.Int("hours", len(points)),
		)
	}
	return points
}
