package ess

import (
	"context"
	"errors"

	"github.com/raterudder/energymatrix/pkg/types"
)

var (
	// ErrConnection is returned when the field bus could not be reached. The
	// connection is re-established on the next read.
	ErrConnection = errors.New("field bus connection failed")
	// ErrRegisterRead is returned when the device answered with an exception
	// or a malformed response.
	ErrRegisterRead = errors.New("register read failed")
)

// System defines the interface for reading an energy-management device.
type System interface {
	// GetReading returns the raw registers for one poll cycle.
	GetReading(ctx context.Context) (types.DeviceReading, error)

	// Close releases the underlying connection.
	Close() error
}
