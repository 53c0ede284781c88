// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"github.com/aZholtikov/zh-160x-i2c/pcf857x"
	"periph.io/x/conn/v3/i2c"
)

// NewPCF8574Backpack returns a display on the common PCF8574 I²C backpack.
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// The backpack answers at 0x27 (PCF8574) or 0x3f (PCF8574A) unless the
// address jumpers were changed.
func NewPCF8574Backpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	pcf, err := pcf857x.New(bus, address, pcf857x.PCF8574)
	if err != nil {
		return nil, err
	}
	return New(pcf, opts)
}

// AttachPCF8574Backpack is NewPCF8574Backpack without the bring-up: what is
// on the display stays there. See Attach. The backlight state is taken from
// the pins read back by the expander probe.
func AttachPCF8574Backpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	pcf, err := pcf857x.New(bus, address, pcf857x.PCF8574)
	if err != nil {
		return nil, err
	}
	dev, err := Attach(pcf, opts)
	if err != nil {
		return nil, err
	}
	dev.backlight = byte(pcf.Latch())&backlightBit != 0
	return dev, nil
}
