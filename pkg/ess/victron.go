package ess

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/types"
)

// Register addresses an input register on a Modbus unit.
type Register struct {
	Unit    byte   `json:"unit"`
	Address uint16 `json:"address"`
}

// Registers is the register map of a Victron GX device.
type Registers struct {
	// ACConsumption is the first of three consecutive registers for L1..L3.
	ACConsumption Register `json:"acConsumption"`
	PVPower       Register `json:"pvPower"`
	BatterySOC    Register `json:"batterySOC"`
	// Yield lists the PV yield meters, in tenths of a kWh.
	Yield []Register `json:"yield,omitempty"`
}

// DefaultRegisters is the com.victronenergy.system unit (100) and the
// BMV/battery unit (225) of a Cerbo GX.
var DefaultRegisters = Registers{
	ACConsumption: Register{Unit: 100, Address: 817},
	PVPower:       Register{Unit: 100, Address: 850},
	BatterySOC:    Register{Unit: 225, Address: 266},
}

// busConn is an open field-bus connection.
type busConn interface {
	ReadInputRegisters(unit byte, address, quantity uint16) ([]byte, error)
	Close() error
}

type dialFunc func(address string, timeout time.Duration) (busConn, error)

// Victron implements System for a Victron GX device over Modbus TCP.
type Victron struct {
	address   string
	timeout   time.Duration
	registers Registers
	dial      dialFunc

	mu   sync.Mutex
	conn busConn
}

var _ System = (*Victron)(nil)

// configuredVictron sets up flags for Victron and returns the instance.
func configuredVictron() *Victron {
	v := &Victron{
		registers: DefaultRegisters,
		dial:      dialTCP,
	}
	address := lflag.String("victron-address", "192.168.178.104:502", "Modbus TCP address of the GX device")
	timeout := lflag.Duration("victron-timeout", 5*time.Second, "Timeout for each Modbus request")
	lflag.JSON(&v.registers, "victron-registers", DefaultRegisters, "JSON register map of the GX device")

	lflag.Do(func() {
		v.address = *address
		v.timeout = *timeout
	})

	return v
}

// Validate ensures the configuration is valid.
func (v *Victron) Validate() error {
	if v.address == "" {
		return errors.New("victron-address is required")
	}
	if _, _, err := net.SplitHostPort(v.address); err != nil {
		return fmt.Errorf("invalid victron-address (%s): %w", v.address, err)
	}
	if v.timeout <= 0 {
		return fmt.Errorf("invalid victron-timeout: %s", v.timeout)
	}
	return nil
}

// GetReading implements System.
func (v *Victron) GetReading(ctx context.Context) (types.DeviceReading, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.conn == nil {
		log.Ctx(ctx).DebugContext(ctx, "connecting to victron", slog.String("address", v.address))
		conn, err := v.dial(v.address, v.timeout)
		if err != nil {
			return types.DeviceReading{}, fmt.Errorf("%w: %s: %w", ErrConnection, v.address, err)
		}
		v.conn = conn
	}

	reading := types.DeviceReading{Timestamp: time.Now()}

	ac, err := v.read(ctx, v.registers.ACConsumption, 3)
	if err != nil {
		return types.DeviceReading{}, err
	}
	reading.L1, reading.L2, reading.L3 = ac[0], ac[1], ac[2]

	pv, err := v.read(ctx, v.registers.PVPower, 1)
	if err != nil {
		return types.DeviceReading{}, err
	}
	reading.PVPower = pv[0]

	soc, err := v.read(ctx, v.registers.BatterySOC, 1)
	if err != nil {
		return types.DeviceReading{}, err
	}
	reading.BatterySOCRaw = soc[0]

	for _, reg := range v.registers.Yield {
		y, err := v.read(ctx, reg, 1)
		if err != nil {
			return types.DeviceReading{}, err
		}
		reading.YieldRaw = append(reading.YieldRaw, y[0])
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"read victron registers",
		slog.Int("l1", int(reading.L1)),
		slog.Int("l2", int(reading.L2)),
		slog.Int("l3", int(reading.L3)),
		slog.Int("pvPower", int(reading.PVPower)),
		slog.Int("batterySOCRaw", int(reading.BatterySOCRaw)),
	)
	return reading, nil
}

// read fetches quantity big-endian uint16 registers. Connection level
// failures drop the connection so the next cycle redials.
func (v *Victron) read(ctx context.Context, reg Register, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: unit %d register %d: %w", ErrConnection, reg.Unit, reg.Address, err)
	}

	raw, err := v.conn.ReadInputRegisters(reg.Unit, reg.Address, quantity)
	if err != nil {
		var me *modbus.ModbusError
		if errors.As(err, &me) {
			return nil, fmt.Errorf("%w: unit %d register %d: %w", ErrRegisterRead, reg.Unit, reg.Address, err)
		}
		v.dropConn(ctx)
		return nil, fmt.Errorf("%w: unit %d register %d: %w", ErrConnection, reg.Unit, reg.Address, err)
	}
	if len(raw) != int(quantity)*2 {
		return nil, fmt.Errorf(
			"%w: unit %d register %d: expected %d bytes, got %d",
			ErrRegisterRead, reg.Unit, reg.Address, quantity*2, len(raw),
		)
	}

	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return values, nil
}

func (v *Victron) dropConn(ctx context.Context) {
	if v.conn == nil {
		return
	}
	if err := v.conn.Close(); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to close victron connection", slog.Any("error", err))
	}
	v.conn = nil
}

// Close implements System.
func (v *Victron) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return nil
	}
	err := v.conn.Close()
	v.conn = nil
	return err
}

type tcpConn struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func dialTCP(address string, timeout time.Duration) (busConn, error) {
	h := modbus.NewTCPClientHandler(address)
	h.Timeout = timeout
	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &tcpConn{handler: h, client: modbus.NewClient(h)}, nil
}

func (c *tcpConn) ReadInputRegisters(unit byte, address, quantity uint16) ([]byte, error) {
	c.handler.SlaveId = unit
	return c.client.ReadInputRegisters(address, quantity)
}

func (c *tcpConn) Close() error {
	return c.handler.Close()
}
