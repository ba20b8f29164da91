package ess

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	registers map[byte]map[uint16]uint16
	errs      map[uint16]error
	short     bool
	reads     int
	closed    bool
}

func (f *fakeConn) ReadInputRegisters(unit byte, address, quantity uint16) ([]byte, error) {
	f.reads++
	if err, ok := f.errs[address]; ok {
		return nil, err
	}
	regs, ok := f.registers[unit]
	if !ok {
		return nil, &modbus.ModbusError{FunctionCode: modbus.FuncCodeReadInputRegisters, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress}
	}
	out := make([]byte, int(quantity)*2)
	for i := range int(quantity) {
		binary.BigEndian.PutUint16(out[i*2:], regs[address+uint16(i)])
	}
	if f.short {
		return out[:1], nil
	}
	return out, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		registers: map[byte]map[uint16]uint16{
			100: {817: 500, 818: 500, 819: 500, 850: 2000},
			225: {266: 650},
			226: {784: 120},
			227: {784: 80},
		},
	}
}

func newTestVictron(conn *fakeConn, dialErr error) (*Victron, *int) {
	dials := 0
	v := &Victron{
		address:   "127.0.0.1:502",
		timeout:   time.Second,
		registers: DefaultRegisters,
		dial: func(address string, timeout time.Duration) (busConn, error) {
			dials++
			if dialErr != nil {
				return nil, dialErr
			}
			return conn, nil
		},
	}
	return v, &dials
}

func TestVictronGetReading(t *testing.T) {
	ctx := context.Background()

	t.Run("Reads", func(t *testing.T) {
		conn := newFakeConn()
		v, dials := newTestVictron(conn, nil)
		v.registers.Yield = []Register{{Unit: 226, Address: 784}, {Unit: 227, Address: 784}}

		r, err := v.GetReading(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint16(500), r.L1)
		assert.Equal(t, uint16(500), r.L2)
		assert.Equal(t, uint16(500), r.L3)
		assert.Equal(t, uint16(2000), r.PVPower)
		assert.Equal(t, uint16(650), r.BatterySOCRaw)
		assert.Equal(t, []uint16{120, 80}, r.YieldRaw)
		assert.Equal(t, 65.0, r.BatterySOC())

		// connection is reused
		_, err = v.GetReading(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, *dials)
	})

	t.Run("DialFailure", func(t *testing.T) {
		v, _ := newTestVictron(nil, errors.New("connection refused"))
		_, err := v.GetReading(ctx)
		require.ErrorIs(t, err, ErrConnection)
	})

	t.Run("ExceptionKeepsConnection", func(t *testing.T) {
		conn := newFakeConn()
		delete(conn.registers, 225)
		v, dials := newTestVictron(conn, nil)

		_, err := v.GetReading(ctx)
		require.ErrorIs(t, err, ErrRegisterRead)
		assert.False(t, conn.closed)

		_, _ = v.GetReading(ctx)
		assert.Equal(t, 1, *dials)
	})

	t.Run("TransportErrorRedials", func(t *testing.T) {
		conn := newFakeConn()
		conn.errs = map[uint16]error{850: fmt.Errorf("read: %w", io.EOF)}
		v, dials := newTestVictron(conn, nil)

		_, err := v.GetReading(ctx)
		require.ErrorIs(t, err, ErrConnection)
		assert.True(t, conn.closed)

		delete(conn.errs, 850)
		_, err = v.GetReading(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, *dials)
	})

	t.Run("ShortResponse", func(t *testing.T) {
		conn := newFakeConn()
		conn.short = true
		v, _ := newTestVictron(conn, nil)

		_, err := v.GetReading(ctx)
		require.ErrorIs(t, err, ErrRegisterRead)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		conn := newFakeConn()
		v, _ := newTestVictron(conn, nil)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := v.GetReading(cctx)
		require.ErrorIs(t, err, ErrConnection)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, conn.reads)
	})

	t.Run("Close", func(t *testing.T) {
		conn := newFakeConn()
		v, _ := newTestVictron(conn, nil)
		require.NoError(t, v.Close())

		_, err := v.GetReading(ctx)
		require.NoError(t, err)
		require.NoError(t, v.Close())
		assert.True(t, conn.closed)
	})
}

func TestVictronValidate(t *testing.T) {
	v := &Victron{timeout: time.Second}
	assert.Error(t, v.Validate())
	v.address = "192.168.178.104"
	assert.Error(t, v.Validate())
	v.address = "192.168.178.104:502"
	assert.NoError(t, v.Validate())
	v.timeout = 0
	assert.Error(t, v.Validate())
}
