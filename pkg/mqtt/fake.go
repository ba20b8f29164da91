package mqtt

import (
	"context"
	"sync"

	"github.com/raterudder/energymatrix/pkg/types"
)

// FakePublisher records published samples for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Samples contains all samples that were published.
	Samples []types.Sample
	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte
	// PublishError, if set, will be returned by Publish.
	PublishError error
	// Closed tracks if Close was called.
	Closed bool
}

// Publish records the sample.
func (f *FakePublisher) Publish(_ context.Context, s types.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(s)
	if err != nil {
		return err
	}
	f.Samples = append(f.Samples, s)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Published returns the number of recorded samples.
func (f *FakePublisher) Published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Samples)
}
