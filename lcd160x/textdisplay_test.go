// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
)

func TestInterface(t *testing.T) {
	for _, variant := range []Variant{LCD16x2, LCD16x4} {
		dev, _, _ := getLCD(t, variant)
		errs := displaytest.TestTextDisplay(dev, false)
		for _, err := range errs {
			if !errors.Is(err, display.ErrNotImplemented) {
				t.Errorf("%s: %v", variant, err)
			}
		}
	}
}

func TestCursorModes(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	tests := []struct {
		modes    []display.CursorMode
		expected byte
	}{
		{[]display.CursorMode{display.CursorUnderline}, 0x0e},
		{[]display.CursorMode{display.CursorBlink}, 0x0f},
		{[]display.CursorMode{display.CursorOff}, 0x0c},
		{[]display.CursorMode{display.CursorBlock}, 0x0d},
		{[]display.CursorMode{display.CursorOff, display.CursorUnderline, display.CursorBlink}, 0x0f},
	}
	for _, tc := range tests {
		panel.ResetLog()
		if err := dev.Cursor(tc.modes...); err != nil {
			t.Fatal(err)
		}
		if got := panel.Commands(); len(got) != 1 || got[0] != tc.expected {
			t.Errorf("Cursor(%v) sent %#v, expected 0x%02x", tc.modes, got, tc.expected)
		}
	}
	panel.ResetLog()
	if err := dev.Cursor(display.CursorBlink + 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, received %v", err)
	}
	if panel.Calls() != 0 {
		t.Error("invalid cursor mode reached the expander")
	}
}

func TestDisplayOnOff(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	if err := dev.EnableCursor(false); err != nil {
		t.Fatal(err)
	}
	if err := dev.Display(false); err != nil {
		t.Fatal(err)
	}
	if panel.DisplayOn() || !panel.CursorOn() {
		t.Error("Display(false) should keep the cursor setting")
	}
	if err := dev.Display(true); err != nil {
		t.Fatal(err)
	}
	if !panel.DisplayOn() || !panel.CursorOn() {
		t.Error("Display(true) did not restore the display")
	}
}

func TestMoveAndHome(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	if err := dev.MoveTo(1, 5); err != nil {
		t.Fatal(err)
	}
	if err := dev.Move(display.Forward); err != nil {
		t.Fatal(err)
	}
	if panel.Address() != 0x46 {
		t.Errorf("address 0x%02x after Move(Forward)", panel.Address())
	}
	if err := dev.Move(display.Backward); err != nil {
		t.Fatal(err)
	}
	if err := dev.Move(display.Backward); err != nil {
		t.Fatal(err)
	}
	if panel.Address() != 0x44 {
		t.Errorf("address 0x%02x after Move(Backward)", panel.Address())
	}
	panel.ResetLog()
	for _, dir := range []display.CursorDirection{display.Up, display.Down} {
		if err := dev.Move(dir); !errors.Is(err, display.ErrNotImplemented) {
			t.Errorf("Move(%d) expected ErrNotImplemented, received %v", dir, err)
		}
	}
	if panel.Calls() != 0 {
		t.Error("unsupported move reached the expander")
	}
	if err := dev.Home(); err != nil {
		t.Fatal(err)
	}
	if panel.Address() != 0 {
		t.Errorf("address 0x%02x after Home", panel.Address())
	}
	if dev.MinRow() != 0 || dev.MinCol() != 0 {
		t.Error("rows and columns are 0 based")
	}
}

func TestAutoScroll(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	if err := dev.AutoScroll(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.AutoScroll(false); err != nil {
		t.Fatal(err)
	}
	if got := panel.Commands(); !bytes.Equal(got, []byte{0x07, 0x06}) {
		t.Errorf("commands %#v", got)
	}
}

func TestWrite(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	n, err := dev.Write(nil)
	if n != 0 || err != nil {
		t.Errorf("Write(nil) = %d, %v", n, err)
	}
	panel.FailAfter(6*3 + 2)
	n, err = dev.WriteString("abcdef")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, received %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 bytes written before the failure, n=%d", n)
	}
}

func TestBacklight(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	if err := dev.Backlight(0); err != nil {
		t.Fatal(err)
	}
	if panel.Backlight() {
		t.Error("backlight still on")
	}
	if panel.Calls() != 1 {
		t.Errorf("expected a single line change, found %d calls", panel.Calls())
	}
	panel.ResetLog()
	if err := dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := panel.Latches(); !bytes.Equal(got, []byte{0x00, 0x10}) {
		t.Errorf("latches with backlight off %#v", got)
	}
	if err := dev.Backlight(0xff); err != nil {
		t.Fatal(err)
	}
	if !panel.Backlight() {
		t.Error("backlight still off")
	}
	panel.ResetLog()
	if err := dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := panel.Latches(); !bytes.Equal(got, []byte{0x08, 0x18}) {
		t.Errorf("latches with backlight on %#v", got)
	}
	if byte(tagCommand) != 0x08 || byte(tagData) != 0x09 {
		t.Error("default control tags changed")
	}
}

func TestHalt(t *testing.T) {
	dev, panel, _ := getLCD(t, LCD16x2)
	if err := dev.PrintText("bye"); err != nil {
		t.Fatal(err)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if panel.DisplayOn() || panel.Backlight() {
		t.Error("Halt should turn the display and backlight off")
	}
	if panel.Lines()[0] != "                " {
		t.Error("Halt should clear the display")
	}
}
