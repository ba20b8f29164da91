package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/common"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/types"
)

// Gateway reads a BLE sensor gateway that lists every sensor it has heard
// from, keyed by the sensor's MAC address.
type Gateway struct {
	url      string
	sensorID string
	// scale divides the raw values, for gateways reporting in tenths.
	scale  float64
	client *http.Client
}

// Configured sets up the weather gateway based on flags. The gateway is
// disabled if no URL is given.
func Configured() *Gateway {
	g := &Gateway{scale: 1}
	gwURL := lflag.String("weather-url", "", "URL of the BLE sensor gateway (empty disables weather)")
	sensorID := lflag.String("weather-sensor-id", "", "MAC address of the outside sensor")
	tenths := lflag.Bool("weather-tenths", false, "Gateway reports values in tenths")
	timeout := lflag.Duration("weather-timeout", 5*time.Second, "Timeout for weather requests")

	lflag.Do(func() {
		g.url = *gwURL
		g.sensorID = *sensorID
		if *tenths {
			g.scale = 10
		}
		g.client = common.HTTPClient(*timeout)
		if !g.Enabled() {
			return
		}
		if err := g.Validate(); err != nil {
			panic(fmt.Sprintf("weather validation failed: %v", err))
		}
	})

	return g
}

// Enabled reports whether a gateway URL is configured.
func (g *Gateway) Enabled() bool {
	return g.url != ""
}

// Validate ensures the configuration is valid.
func (g *Gateway) Validate() error {
	if _, err := url.Parse(g.url); err != nil {
		return fmt.Errorf("failed to parse weather url (%s): %w", g.url, err)
	}
	if g.sensorID == "" {
		return errors.New("weather-sensor-id is required")
	}
	if g.scale <= 0 {
		return fmt.Errorf("invalid scale: %v", g.scale)
	}
	return nil
}

var _ Station = (*Gateway)(nil)

type gatewayResponse struct {
	Sensors []gatewaySensor `json:"sensors"`
}

type gatewaySensor struct {
	BLEMac      string   `json:"ble_mac"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
}

// GetWeather implements Station.
func (g *Gateway) GetWeather(ctx context.Context) (types.Weather, error) {
	log.Ctx(ctx).DebugContext(ctx, "fetching weather", slog.String("url", g.url))

	var res gatewayResponse
	if err := common.GetJSON(ctx, g.client, g.url, &res); err != nil {
		return types.Weather{}, fmt.Errorf("%w: %s: %w", ErrWeatherFetch, g.url, err)
	}

	for _, s := range res.Sensors {
		if !strings.EqualFold(s.BLEMac, g.sensorID) {
			continue
		}
		if s.Temperature == nil {
			return types.Weather{}, fmt.Errorf("%w: sensor %s has no temperature", ErrWeatherFetch, g.sensorID)
		}
		w := types.Weather{
			SensorID:    s.BLEMac,
			Temperature: *s.Temperature / g.scale,
		}
		if s.Humidity != nil {
			w.Humidity = *s.Humidity / g.scale
		}
		if s.Pressure != nil {
			w.Pressure = *s.Pressure / g.scale
		}
		log.Ctx(ctx).DebugContext(
			ctx,
			"got weather",
			slog.Float64("temperature", w.Temperature),
			slog.Float64("humidity", w.Humidity),
			slog.Float64("pressure", w.Pressure),
		)
		return w, nil
	}

	return types.Weather{}, fmt.Errorf(
		"%w: %w: %s (%d sensors reported)",
		ErrWeatherFetch, ErrSensorNotFound, g.sensorID, len(res.Sensors),
	)
}
