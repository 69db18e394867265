// Package bus provides the I2C register transport for the PX4FLOW.
package bus

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// 7-bit address range the sensor can be strapped to.
const (
	AddrDefault uint16 = 0x42
	AddrMin     uint16 = 0x42
	AddrMax     uint16 = 0x49
)

// MaxBusSpeed is the highest clock the sensor supports.
const MaxBusSpeed = 400 * physic.KiloHertz

// I2C owns one bus handle and addresses a single device on it.
type I2C struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// OpenI2C opens the named bus ("1", "/dev/i2c-1", ...) and binds it to
// the device address. The bus is clocked at MaxBusSpeed where the host
// allows runtime speed changes.
func OpenI2C(busName string, addr uint16) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if addr < AddrMin || addr > AddrMax {
		return nil, fmt.Errorf("i2c address 0x%02x out of range [0x%02x, 0x%02x]", addr, AddrMin, AddrMax)
	}
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2c bus %q open: %w", busName, err)
	}
	if err := b.SetSpeed(MaxBusSpeed); err != nil {
		// Not fatal: sysfs buses have their speed fixed at boot.
		log.Printf("i2c bus %q: cannot set speed to %s: %v", busName, MaxBusSpeed, err)
	}
	return &I2C{bus: b, dev: i2c.Dev{Bus: b, Addr: addr}}, nil
}

// Transfer performs one write-then-read transaction against the device.
func (t *I2C) Transfer(w, r []byte) error {
	return t.dev.Tx(w, r)
}

// Close releases the bus handle.
func (t *I2C) Close() error {
	return t.bus.Close()
}

func (t *I2C) String() string {
	return t.dev.String()
}
