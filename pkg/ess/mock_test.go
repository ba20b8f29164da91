package ess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock(t *testing.T) {
	now := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	m := newMock(func() time.Time { return now })
	ctx := context.Background()

	first, err := m.GetReading(ctx)
	require.NoError(t, err)
	assert.Greater(t, first.PVPower, uint16(2000), "midday sun")
	assert.Equal(t, first.L1, first.L2)
	assert.Equal(t, 50.0, first.BatterySOC())

	// an hour of surplus charges the battery and accumulates yield
	now = now.Add(time.Hour)
	second, err := m.GetReading(ctx)
	require.NoError(t, err)
	assert.Greater(t, second.BatterySOC(), first.BatterySOC())
	y, ok := second.PVYield()
	require.True(t, ok)
	assert.Greater(t, y, 2.0)

	// night has no PV
	now = time.Date(2025, 6, 21, 23, 0, 0, 0, time.UTC)
	night, err := m.GetReading(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), night.PVPower)
	assert.GreaterOrEqual(t, night.BatterySOC(), 0.0)
	assert.LessOrEqual(t, night.BatterySOC(), 100.0)

	require.NoError(t, m.Close())
}

func TestClampUint16(t *testing.T) {
	assert.Equal(t, uint16(0), clampUint16(-5))
	assert.Equal(t, uint16(65535), clampUint16(1e9))
	assert.Equal(t, uint16(3), clampUint16(2.5))
}
