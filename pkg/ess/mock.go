package ess

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/raterudder/energymatrix/pkg/types"
)

const (
	mockCapacityKWH = 10.0
	mockMaxRateKW   = 5.0
)

// Mock simulates a house with PV and a battery so the display can be run
// without hardware. State is advanced in 5 minute steps up to now.
type Mock struct {
	now func() time.Time

	mu        sync.Mutex
	timestamp time.Time
	soc       float64
	yieldKWH  float64
	homeKW    float64
	solarKW   float64
}

func newMock(now func() time.Time) *Mock {
	return &Mock{
		now: now,
		soc: 50,
	}
}

// GetReading implements System.
func (m *Mock) GetReading(ctx context.Context) (types.DeviceReading, error) {
	if err := ctx.Err(); err != nil {
		return types.DeviceReading{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.advance(now)

	phaseW := m.homeKW * 1000 / 3
	return types.DeviceReading{
		Timestamp:     now,
		L1:            clampUint16(phaseW),
		L2:            clampUint16(phaseW),
		L3:            clampUint16(phaseW),
		PVPower:       clampUint16(m.solarKW * 1000),
		BatterySOCRaw: clampUint16(m.soc * 10),
		YieldRaw:      []uint16{clampUint16(m.yieldKWH * 10)},
	}, nil
}

func (m *Mock) advance(now time.Time) {
	if m.timestamp.IsZero() || now.Sub(m.timestamp) > 24*time.Hour {
		m.timestamp = now
		m.homeKW, m.solarKW = mockLoads(now)
		return
	}

	for stepStart := m.timestamp; stepStart.Before(now); {
		stepEnd := stepStart.Add(5 * time.Minute)
		if stepEnd.After(now) {
			stepEnd = now
		}
		hours := stepEnd.Sub(stepStart).Hours()
		homeKW, solarKW := mockLoads(stepStart.Add(stepEnd.Sub(stepStart) / 2))

		// surplus charges the battery, deficit discharges it
		batteryKW := math.Max(-mockMaxRateKW, math.Min(mockMaxRateKW, solarKW-homeKW))
		soc := m.soc + batteryKW*hours/mockCapacityKWH*100
		m.soc = math.Max(0, math.Min(100, soc))
		m.yieldKWH += solarKW * hours

		m.homeKW, m.solarKW = homeKW, solarKW
		stepStart = stepEnd
	}
	if midnight(now).After(midnight(m.timestamp)) {
		m.yieldKWH = 0
	}
	m.timestamp = now
}

// mockLoads returns a home load between 1 and 2 kW and a PV bell curve
// peaking at 3 kW around 12:30.
func mockLoads(t time.Time) (homeKW, solarKW float64) {
	hour := float64(t.Hour()) + float64(t.Minute())/60.0
	homeKW = math.Max(1.0, 1.5+0.5*math.Sin(hour*math.Pi))
	if hour >= 6 && hour <= 19 {
		solarKW = 3.0 * math.Sin((hour-6)/13*math.Pi)
	}
	return homeKW, solarKW
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clampUint16(v float64) uint16 {
	return uint16(math.Max(0, math.Min(math.MaxUint16, math.Round(v))))
}

// Close implements System.
func (m *Mock) Close() error {
	return nil
}
