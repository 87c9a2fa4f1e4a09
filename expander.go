package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// expanderPins is the number of output lines on a PCF8574.
const expanderPins = 8

// Expander drives the 8-bit quasi-bidirectional port of a PCF8574 over i2c.
// The chip has a single register and every write replaces all eight lines at
// once, so the driver keeps a shadow copy of the last written value and sets
// individual pins with a read-modify-write against it.  The mutex serializes
// concurrent HTTP handlers mutating the port.
type Expander struct {
	mu     sync.Mutex
	dev    i2c.Dev
	shadow uint8
}

// NewExpander wraps an already opened bus.  The initial register value is
// written to the chip immediately so the lines start in a known state.
func NewExpander(bus i2c.Bus, addr uint16, initial uint8) (*Expander, error) {
	e := &Expander{dev: i2c.Dev{Bus: bus, Addr: addr}, shadow: initial}
	if err := e.write(initial); err != nil {
		return nil, fmt.Errorf("expander init: %w", err)
	}
	return e, nil
}

// openExpander initialises the periph host drivers, opens the configured i2c
// bus and returns a driver for the PCF8574 at the configured address.
func openExpander(cfg Config, logger *Logger) (*Expander, error) {
	addr, err := parseI2CAddress(cfg.I2CAddress)
	if err != nil {
		return nil, err
	}
	logger.Infof("Initializing PCF8574 on bus %s with address 0x%02x", cfg.I2CBus, addr)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %s: %w", cfg.I2CBus, err)
	}
	e, err := NewExpander(bus, addr, cfg.PowerDefaultState)
	if err != nil {
		return nil, err
	}
	logger.Infof("PCF8574 device created successfully")
	return e, nil
}

// parseI2CAddress accepts a "0x"-prefixed hex address (e.g. "0x20") or a
// plain decimal one.  Addresses are 7-bit.
func parseI2CAddress(s string) (uint16, error) {
	v := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v = v[2:]
		base = 16
	}
	n, err := strconv.ParseUint(v, base, 7)
	if err != nil {
		return 0, fmt.Errorf("invalid i2c address %q: %w", s, err)
	}
	return uint16(n), nil
}

// SetPin sets a single output line, leaving the other seven untouched.
func (e *Expander) SetPin(pin uint8, high bool) error {
	if pin >= expanderPins {
		return fmt.Errorf("invalid pin number: %d", pin)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.shadow
	if high {
		next |= 1 << pin
	} else {
		next &^= 1 << pin
	}
	if err := e.write(next); err != nil {
		return err
	}
	e.shadow = next
	return nil
}

// Pins returns the last value written to the output register.
func (e *Expander) Pins() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shadow
}

func (e *Expander) write(value uint8) error {
	if err := e.dev.Tx([]byte{value}, nil); err != nil {
		return fmt.Errorf("pcf8574 write: %w", err)
	}
	return nil
}
