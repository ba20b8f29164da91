package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/types"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	broker   string
	topic    string
	clientID string
	retain   bool
	timeout  time.Duration
	// retryInterval is the wait between connection attempts.
	retryInterval time.Duration

	client paho.Client
}

// Configured sets up the publisher based on flags. It does not connect; call
// Connect once flags are parsed and Enabled returns true.
func Configured() *RealPublisher {
	p := &RealPublisher{retryInterval: 5 * time.Second}
	broker := lflag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883), empty disables publishing")
	topic := lflag.String("mqtt-topic", DefaultTopic, "MQTT topic for samples")
	clientID := lflag.String("mqtt-client-id", "energymatrix", "MQTT client id")
	retain := lflag.Bool("mqtt-retain", true, "Publish samples as retained messages")
	timeout := lflag.Duration("mqtt-timeout", 5*time.Second, "Timeout for connecting and publishing")

	lflag.Do(func() {
		p.broker = *broker
		p.topic = *topic
		p.clientID = *clientID
		p.retain = *retain
		p.timeout = *timeout
		if err := p.Validate(); err != nil {
			panic(fmt.Sprintf("mqtt validation failed: %v", err))
		}
	})

	return p
}

// Enabled returns true if a broker is configured.
func (p *RealPublisher) Enabled() bool {
	return p.broker != ""
}

// Validate ensures the configuration is valid.
func (p *RealPublisher) Validate() error {
	if !p.Enabled() {
		return nil
	}
	if _, err := url.Parse(p.broker); err != nil {
		return fmt.Errorf("failed to parse mqtt broker (%s): %w", p.broker, err)
	}
	if p.topic == "" {
		return errors.New("mqtt-topic is required")
	}
	if p.timeout <= 0 {
		return errors.New("mqtt-timeout must be positive")
	}
	return nil
}

// Connect connects to the broker. If the broker does not answer within the
// timeout the client is kept and keeps retrying in the background, so
// publishing starts once the broker comes up.
func (p *RealPublisher) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(p.broker).
		SetClientID(p.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(p.retryInterval).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Ctx(ctx).WarnContext(ctx, "mqtt connection lost", slog.Any("error", err))
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(p.timeout) {
		p.client = client
		return fmt.Errorf("%w: connection to %s timed out, retrying in the background", ErrPublish, p.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: connect to %s: %w", ErrPublish, p.broker, err)
	}
	p.client = client
	log.Ctx(ctx).InfoContext(ctx, "connected to mqtt broker", slog.String("broker", p.broker))
	return nil
}

// Publish implements Publisher.
func (p *RealPublisher) Publish(ctx context.Context, s types.Sample) error {
	if p.client == nil || !p.client.IsConnectionOpen() {
		return fmt.Errorf("%w: not connected", ErrPublish)
	}
	payload, err := FormatPayload(s)
	if err != nil {
		return fmt.Errorf("%w: format payload: %w", ErrPublish, err)
	}

	// QoS 0, the next sample follows within seconds
	token := p.client.Publish(p.topic, 0, p.retain, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: publish timeout", ErrPublish)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublish, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000)
	}
	return nil
}
