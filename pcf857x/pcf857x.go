// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf857x drives the TI/NXP PCF857X I²C I/O expander. The PCF8574
// has 8 "quasi-bidirectional" pins and the PCF8575 has 16. The PCF8574 is the
// chip found on the I²C backpacks soldered to LCD1602 and LCD1604 modules.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// # Notes
//
// The chip has no registers. Writing 1 or 2 bytes sets every pin at once and
// reading returns the state of every pin. A pin driven Low sinks current; a
// pin written High is released and can be read as an input.
//
// Dev keeps a copy of the output latch so that single pins can be changed
// without a read-modify-write on the bus. Writes that would not change the
// latch are skipped.
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	// DefaultAddress is the address with A0-A2 tied low. LCD backpacks using
	// the PCF8574A answer at 0x38 instead.
	DefaultAddress uint16 = 0x20
)

// ErrHalted is returned by writes after Halt.
var ErrHalted = errors.New("pcf857x: device halted")

// Dev is a PCF857x device.
type Dev struct {
	mask     gpio.GPIOValue
	width    int
	chipType Variant

	mu    sync.Mutex
	d     *i2c.Dev
	value gpio.GPIOValue
	ready bool
}

// New probes the expander at address and returns it. The probe is a single
// read, which also seeds the latch copy with the current pin state; it fails
// if nothing acknowledges the address.
func New(bus i2c.Bus, address uint16, chip Variant) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, chipType: chip}
	switch chip {
	case PCF8574:
		dev.width = 8
	case PCF8575:
		dev.width = 16
	default:
		return nil, fmt.Errorf("pcf857x: unknown variant %q", chip)
	}
	dev.mask = gpio.GPIOValue((1 << dev.width) - 1)

	r := make([]byte, dev.width/8)
	if err := dev.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("pcf857x: probe %s: %w", dev, err)
	}
	dev.value = bytesToValue(r)
	dev.ready = true
	return dev, nil
}

// Ready reports whether the device was probed and has not been halted.
func (dev *Dev) Ready() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.ready
}

// WriteLatch sets the low 8 pins to value in one transfer. On a PCF8575 the
// high 8 pins keep their state.
func (dev *Dev) WriteLatch(value byte) error {
	return dev.write(gpio.GPIOValue(value), 0xff)
}

// SetLine drives a single pin. High releases the pin, which is also how it
// is turned into an input.
func (dev *Dev) SetLine(line int, level gpio.Level) error {
	if line < 0 || line >= dev.width {
		return fmt.Errorf("pcf857x: line %d out of range [0, %d)", line, dev.width)
	}
	mask := gpio.GPIOValue(1) << line
	value := gpio.GPIOValue(0)
	if level {
		value = mask
	}
	return dev.write(value, mask)
}

// Latch returns the last value written to, or read from, the pins.
func (dev *Dev) Latch() gpio.GPIOValue {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Halt stops the device. Writes fail with ErrHalted afterwards; the pins keep
// their last state.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.ready = false
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s_%x", dev.chipType, dev.d.Addr)
}

// write changes the pins in mask to value. The transfer is skipped if the
// latch would not change.
func (dev *Dev) write(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.ready {
		return ErrHalted
	}
	wrValue := dev.value &^ mask
	wrValue |= value & mask
	wrValue &= dev.mask
	if dev.value == wrValue {
		return nil
	}
	w := make([]byte, dev.width/8)
	for ix := range w {
		w[ix] = byte(wrValue >> (ix * 8))
	}
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	dev.value = wrValue
	return nil
}

func bytesToValue(b []byte) gpio.GPIOValue {
	var v gpio.GPIOValue
	for ix, c := range b {
		v |= gpio.GPIOValue(c) << (ix * 8)
	}
	return v
}
