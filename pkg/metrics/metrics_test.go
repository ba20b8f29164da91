package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raterudder/energymatrix/pkg/cache"
	"github.com/raterudder/energymatrix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveCycle(ResultSuccess, "", 0.2)
	m.ObserveCycle(ResultTimeout, "price", 5)
	m.ObserveCycle(ResultError, "device", 0.1)
	m.ObserveCache("price", cache.OutcomeRefreshed)
	m.ObserveCache("price", cache.OutcomeHit)
	m.ObserveCache("price", cache.OutcomeHit)
	m.ObserveSend(nil)
	m.ObserveSend(errors.New("boom"))
	m.SetSample(types.Sample{
		Timestamp:  time.Unix(1741608000, 0),
		ACPower:    1500,
		PVPower:    2000,
		BatterySOC: 65,
		Price:      &types.PriceInfo{Price: 0.5},
	})

	body := scrape(t, m)
	for _, line := range []string{
		`energymatrix_cycles_total{result="success"} 1`,
		`energymatrix_cycles_total{result="timeout"} 1`,
		`energymatrix_cycles_total{result="error"} 1`,
		`energymatrix_cycle_errors_total{stage="price"} 1`,
		`energymatrix_cycle_errors_total{stage="device"} 1`,
		`energymatrix_cycle_latency_seconds_count 3`,
		`energymatrix_cache_lookups_total{cache="price",outcome="hit"} 2`,
		`energymatrix_cache_lookups_total{cache="price",outcome="refreshed"} 1`,
		`energymatrix_display_sends_total{result="error"} 1`,
		`energymatrix_display_sends_total{result="success"} 1`,
		`energymatrix_ac_power_watts 1500`,
		`energymatrix_pv_power_watts 2000`,
		`energymatrix_battery_soc_percent 65`,
		`energymatrix_price_per_kwh 0.5`,
		`energymatrix_last_success_timestamp_seconds 1.741608e+09`,
	} {
		assert.Contains(t, body, line)
	}
	assert.NotContains(t, body, `stage=""`)
}
