// Package mqtt publishes every sample to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/raterudder/energymatrix/pkg/types"
)

// DefaultTopic is the topic samples are published to.
const DefaultTopic = "energy/energymatrix/sample"

// ErrPublish is returned when a sample could not be delivered to the broker.
var ErrPublish = errors.New("mqtt publish failed")

// Publisher publishes samples.
type Publisher interface {
	// Publish sends the sample to the broker. An error must not stop the poll
	// loop.
	Publish(ctx context.Context, s types.Sample) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON document published for a sample.
type Payload struct {
	Timestamp   string   `json:"timestamp"`
	ACPower     float64  `json:"acPower"`
	PVPower     float64  `json:"pvPower"`
	PVYield     *float64 `json:"pvYield,omitempty"`
	BatterySOC  float64  `json:"batterySOC"`
	Price       *float64 `json:"price,omitempty"`
	PriceTier   string   `json:"priceTier,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

// FormatPayload creates the JSON payload for a sample.
func FormatPayload(s types.Sample) ([]byte, error) {
	p := Payload{
		Timestamp:  s.Timestamp.UTC().Format(time.RFC3339),
		ACPower:    s.ACPower,
		PVPower:    s.PVPower,
		PVYield:    s.PVYield,
		BatterySOC: s.BatterySOC,
	}
	if s.Price != nil {
		price := s.Price.Price
		p.Price = &price
		p.PriceTier = s.Price.Tier.Name
	}
	if s.Weather != nil {
		t, h, pr := s.Weather.Temperature, s.Weather.Humidity, s.Weather.Pressure
		p.Temperature = &t
		p.Humidity = &h
		p.Pressure = &pr
	}
	return json.Marshal(p)
}
