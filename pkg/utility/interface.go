package utility

import (
	"context"
	"time"

	"github.com/raterudder/energymatrix/pkg/types"
)

// Provider fetches day-ahead market prices.
type Provider interface {
	// GetPriceSeries returns hourly prices covering at least hour and the
	// following hours that have been published.
	GetPriceSeries(ctx context.Context, hour time.Time) (types.PriceSeries, error)
}
