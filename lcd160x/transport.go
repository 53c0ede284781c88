// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Expander is the 8 bit I/O expander that drives the controller's parallel
// interface. On the common PCF8574 backpack the latch bits map to
//
//	bit 0  RS
//	bit 1  R/W (always low)
//	bit 2  E
//	bit 3  backlight
//	bit 4-7 D4-D7
//
// pcf857x.Dev implements this interface.
type Expander interface {
	// WriteLatch writes all 8 output lines in one transfer.
	WriteLatch(value byte) error
	// SetLine sets a single output line, leaving the others unchanged.
	SetLine(line int, level gpio.Level) error
	// Ready reports whether the expander completed its own initialization.
	Ready() bool
}

const (
	// EnableLine is the expander output wired to the controller's E pin.
	EnableLine = 2

	rsBit        byte = 0x01
	backlightBit byte = 0x08

	// DefaultPulseWidth is the enable high and low hold time. The controller
	// needs far less.
	DefaultPulseWidth = time.Millisecond
)

// controlTag is OR'ed into the low half of every latch write.
type controlTag byte

const (
	tagCommand controlTag = controlTag(backlightBit)
	tagData    controlTag = controlTag(backlightBit | rsBit)
)

func (dev *Dev) tag(rs bool) controlTag {
	var t byte
	if dev.backlight {
		t |= backlightBit
	}
	if rs {
		t |= rsBit
	}
	return controlTag(t)
}

func (dev *Dev) transportErr(step string, err error) error {
	return &TransportError{Step: step, Err: err}
}

// pulse latches the nibble currently presented on D4-D7.
func (dev *Dev) pulse() error {
	if err := dev.exp.SetLine(EnableLine, gpio.High); err != nil {
		return dev.transportErr("enable high", err)
	}
	dev.sleep(dev.pulseWidth)
	if err := dev.exp.SetLine(EnableLine, gpio.Low); err != nil {
		return dev.transportErr("enable low", err)
	}
	dev.sleep(dev.pulseWidth)
	return nil
}

// writeRaw presents value on the latch as is and pulses E. It is only used
// by the bring-up handshake, before 4 bit mode is established.
func (dev *Dev) writeRaw(value byte) error {
	if err := dev.exp.WriteLatch(value); err != nil {
		return dev.transportErr(fmt.Sprintf("write latch 0x%02x", value), err)
	}
	return dev.pulse()
}

func (dev *Dev) sendNibble(nibble byte, tag controlTag) error {
	return dev.writeRaw(nibble<<4 | byte(tag))
}

// sendByte sends value as two nibbles, high first. A failure on the high
// nibble aborts without sending the low one.
func (dev *Dev) sendByte(value byte, tag controlTag) error {
	if err := dev.sendNibble(value>>4, tag); err != nil {
		return err
	}
	return dev.sendNibble(value&0x0f, tag)
}

func (dev *Dev) sendCommand(cmd byte) error {
	return dev.sendByte(cmd, dev.tag(false))
}

func (dev *Dev) sendData(data byte) error {
	return dev.sendByte(data, dev.tag(true))
}
