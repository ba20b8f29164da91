package controller

import (
	"context"
	"time"

	"github.com/raterudder/energymatrix/pkg/types"
	"github.com/stretchr/testify/mock"
)

type mockESS struct {
	mock.Mock
}

func (m *mockESS) GetReading(ctx context.Context) (types.DeviceReading, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.DeviceReading), args.Error(1)
}

func (m *mockESS) Close() error {
	return m.Called().Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetPriceSeries(ctx context.Context, hour time.Time) (types.PriceSeries, error) {
	args := m.Called(ctx, hour)
	return args.Get(0).(types.PriceSeries), args.Error(1)
}

type mockStation struct {
	mock.Mock
}

func (m *mockStation) GetWeather(ctx context.Context) (types.Weather, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Weather), args.Error(1)
}
