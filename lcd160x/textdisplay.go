// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// BacklightLine is the expander output that switches the backlight.
const BacklightLine = 3

// AutoScroll makes the controller shift the whole display on every write
// instead of moving the cursor.
func (dev *Dev) AutoScroll(enabled bool) error {
	return dev.run("AutoScroll", true, func() error {
		prev := dev.autoScroll
		dev.autoScroll = enabled
		if err := dev.sendCommand(dev.entryMode()); err != nil {
			dev.autoScroll = prev
			return err
		}
		return nil
	})
}

// Cols returns the number of columns, which is always 16.
func (dev *Dev) Cols() int {
	return Cols
}

// Rows returns the number of rows of the current layout.
func (dev *Dev) Rows() int {
	return dev.variant.Rows()
}

// MinCol returns 0; columns are 0 based.
func (dev *Dev) MinCol() int {
	return 0
}

// MinRow returns 0; rows are 0 based.
func (dev *Dev) MinRow() int {
	return 0
}

// Cursor sets the cursor mode. The controller has a single cursor glyph that
// can be shown as an underline, blink as a block, or both, so CursorBlock and
// CursorBlink are the same.
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	return dev.run("Cursor", true, func() error {
		cursor, blink := dev.cursor, dev.blink
		for _, mode := range modes {
			switch mode {
			case display.CursorOff:
				cursor, blink = false, false
			case display.CursorUnderline:
				cursor = true
			case display.CursorBlock, display.CursorBlink:
				blink = true
			default:
				return invalidArgument("unexpected cursor mode %d", mode)
			}
		}
		return dev.setDisplayControl(dev.on, cursor, blink)
	})
}

// Home moves the cursor to 0, 0 and undoes any display shift.
func (dev *Dev) Home() error {
	return dev.run("Home", true, func() error {
		if err := dev.sendCommand(cmdHome); err != nil {
			return err
		}
		dev.sleep(clearDelay)
		return nil
	})
}

// Move moves the cursor one cell forward or backward. Up and Down are not
// supported by the controller.
func (dev *Dev) Move(dir display.CursorDirection) error {
	return dev.run("Move", true, func() error {
		switch dir {
		case display.Backward:
			return dev.sendCommand(cmdShift)
		case display.Forward:
			return dev.sendCommand(cmdShift | shiftRight)
		}
		return fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
	})
}

// MoveTo is SetCursor.
func (dev *Dev) MoveTo(row, col int) error {
	return dev.SetCursor(row, col)
}

// Display turns the display on or off. DDRAM content is kept while off.
func (dev *Dev) Display(on bool) error {
	return dev.run("Display", true, func() error {
		return dev.setDisplayControl(on, dev.cursor, dev.blink)
	})
}

// Write sends p as character codes at the cursor position. It implements
// io.Writer; n is the number of bytes fully sent.
func (dev *Dev) Write(p []byte) (n int, err error) {
	err = dev.run("Write", true, func() error {
		for _, c := range p {
			if err := dev.sendData(c); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// WriteString is Write for a string.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// Backlight switches the backlight. The module only supports on and off, so
// any intensity above 0 is on.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	return dev.run("Backlight", true, func() error {
		on := intensity > 0
		if err := dev.exp.SetLine(BacklightLine, gpio.Level(on)); err != nil {
			return dev.transportErr("backlight", err)
		}
		dev.backlight = on
		return nil
	})
}

// Halt clears the display, turns it off and switches off the backlight.
func (dev *Dev) Halt() error {
	return errors.Join(dev.Clear(), dev.Display(false), dev.Backlight(0))
}

func (dev *Dev) String() string {
	if s, ok := dev.exp.(fmt.Stringer); ok {
		return fmt.Sprintf("%s{%s, %s}", packageName, dev.variant, s)
	}
	return fmt.Sprintf("%s{%s}", packageName, dev.variant)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
