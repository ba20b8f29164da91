// Package weather reads the outside temperature, humidity and pressure.
package weather

import (
	"context"
	"errors"

	"github.com/raterudder/energymatrix/pkg/types"
)

var (
	// ErrWeatherFetch is returned when the weather source could not be read.
	ErrWeatherFetch = errors.New("weather fetch failed")
	// ErrSensorNotFound is returned when the configured sensor is not part of
	// the response.
	ErrSensorNotFound = errors.New("weather sensor not found")
)

// Station returns the current outside weather.
type Station interface {
	GetWeather(ctx context.Context) (types.Weather, error)
}
