// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"periph.io/x/conn/v3/gpio"
)

// nibble presents v on the latch and pulses E the way the backpack driver does.
func nibble(t *testing.T, p *Panel, v byte) {
	t.Helper()
	if err := p.WriteLatch(v); err != nil {
		t.Fatal(err)
	}
	if err := p.SetLine(lineE, gpio.High); err != nil {
		t.Fatal(err)
	}
	if err := p.SetLine(lineE, gpio.Low); err != nil {
		t.Fatal(err)
	}
}

func send(t *testing.T, p *Panel, b byte, rs bool) {
	t.Helper()
	tag := bitBacklight
	if rs {
		tag |= bitRS
	}
	nibble(t, p, b&0xf0|tag)
	nibble(t, p, b<<4|tag)
}

func bringUp(t *testing.T, p *Panel) {
	t.Helper()
	for range 3 {
		nibble(t, p, 0x30)
	}
	nibble(t, p, 0x20)
	for _, c := range []byte{0x28, 0x0c, 0x01, 0x06} {
		send(t, p, c, false)
	}
}

func getPanel(t *testing.T, rows int) *Panel {
	t.Helper()
	p, err := New(rows)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew(t *testing.T) {
	for _, rows := range []int{0, 1, 3, 5} {
		if _, err := New(rows); err == nil {
			t.Errorf("New(%d) expected error", rows)
		}
	}
	p := getPanel(t, 4)
	if !p.Ready() {
		t.Error("expected Ready()")
	}
	if p.FourBit() {
		t.Error("controller should power up in 8 bit mode")
	}
	if p.String() != "lcdsim{16x4}" {
		t.Errorf("String() = %q", p.String())
	}
	p.SetReady(false)
	if p.Ready() {
		t.Error("expected !Ready() after SetReady(false)")
	}
}

func TestBringUp(t *testing.T) {
	p := getPanel(t, 2)
	bringUp(t, p)
	if !p.FourBit() {
		t.Fatal("expected 4 bit mode")
	}
	expected := []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x0c, 0x01, 0x06}
	if got := p.Commands(); !bytes.Equal(got, expected) {
		t.Errorf("commands %#v, expected %#v", got, expected)
	}
	if !p.DisplayOn() || p.CursorOn() || p.BlinkOn() {
		t.Error("expected display on, cursor off, blink off")
	}
	if !p.Backlight() {
		t.Error("expected backlight on")
	}
	if p.Calls() != 4*3+4*2*3 {
		t.Errorf("unexpected call count %d", p.Calls())
	}
}

func TestData(t *testing.T) {
	p := getPanel(t, 4)
	bringUp(t, p)
	send(t, p, 0x80|0x40|3, false)
	for _, c := range []byte("Hi") {
		send(t, p, c, true)
	}
	lines := p.Lines()
	if lines[1] != "   Hi           " {
		t.Errorf("row 1 = %q", lines[1])
	}
	if p.Address() != 0x45 {
		t.Errorf("address counter 0x%x, expected 0x45", p.Address())
	}
	if string(p.Data()) != "Hi" {
		t.Errorf("data %q", p.Data())
	}
}

// Row 0 of a 4 row module runs into row 2 at DDRAM 0x10.
func TestOverflowIntoRow2(t *testing.T) {
	p := getPanel(t, 4)
	bringUp(t, p)
	for _, c := range []byte("0123456789abcdefXY") {
		send(t, p, c, true)
	}
	lines := p.Lines()
	if lines[0] != "0123456789abcdef" {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[2] != "XY              " {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestAddressWrap(t *testing.T) {
	p := getPanel(t, 2)
	bringUp(t, p)
	send(t, p, 0x80|0x27, false)
	send(t, p, 'A', true)
	if p.Address() != 0x40 {
		t.Errorf("expected 0x27 to advance to 0x40, found 0x%x", p.Address())
	}
	send(t, p, 0x80|0x67, false)
	send(t, p, 'B', true)
	if p.Address() != 0x00 {
		t.Errorf("expected 0x67 to advance to 0x00, found 0x%x", p.Address())
	}
	// Cursor shift left from 0.
	send(t, p, 0x10, false)
	if p.Address() != 0x67 {
		t.Errorf("expected 0x00 to move back to 0x67, found 0x%x", p.Address())
	}
}

func TestShiftAndHome(t *testing.T) {
	p := getPanel(t, 2)
	bringUp(t, p)
	send(t, p, 'A', true)
	// Display shift right.
	send(t, p, 0x1c, false)
	if l := p.Lines()[0]; l != " A              " {
		t.Errorf("after shift row 0 = %q", l)
	}
	send(t, p, 0x02, false)
	if l := p.Lines()[0]; l != "A               " {
		t.Errorf("after home row 0 = %q", l)
	}
	// Entry mode with display shift: the text scrolls left under a fixed
	// cursor, so the B just written scrolls out of view.
	send(t, p, 0x07, false)
	send(t, p, 'B', true)
	if l := p.Lines()[0]; l != strings.Repeat(" ", Cols) {
		t.Errorf("after auto shift row 0 = %q", l)
	}
}

func TestDisplayControl(t *testing.T) {
	p := getPanel(t, 2)
	bringUp(t, p)
	send(t, p, 0x0f, false)
	if !p.DisplayOn() || !p.CursorOn() || !p.BlinkOn() {
		t.Error("expected display, cursor and blink on")
	}
	send(t, p, 0x08, false)
	if p.DisplayOn() {
		t.Error("expected display off")
	}
}

func TestFailAfter(t *testing.T) {
	p := getPanel(t, 2)
	p.FailAfter(2)
	if err := p.WriteLatch(0x30); err != nil {
		t.Fatal(err)
	}
	if err := p.SetLine(lineE, gpio.High); err != nil {
		t.Fatal(err)
	}
	if err := p.SetLine(lineE, gpio.Low); !errors.Is(err, ErrInjected) {
		t.Fatalf("expected ErrInjected, received %v", err)
	}
	// The failed call did not reach the controller.
	if len(p.Commands()) != 0 {
		t.Errorf("unexpected commands %#v", p.Commands())
	}
	if err := p.SetLine(lineE, gpio.Low); err != nil {
		t.Errorf("only one failure expected, received %v", err)
	}
	if p.Calls() != 4 {
		t.Errorf("expected 4 calls, found %d", p.Calls())
	}
	p.ResetLog()
	if p.Calls() != 0 || len(p.Latches()) != 0 {
		t.Error("ResetLog() did not clear the log")
	}
}

func TestSetLineOutOfRange(t *testing.T) {
	p := getPanel(t, 2)
	if err := p.SetLine(8, gpio.High); err == nil {
		t.Error("expected error")
	}
	if p.Calls() != 0 {
		t.Error("invalid call was counted")
	}
}

func TestConsole(t *testing.T) {
	p := getPanel(t, 2)
	bringUp(t, p)
	for _, c := range []byte("Hello\xff") {
		send(t, p, c, true)
	}
	var buf bytes.Buffer
	c := NewConsole(p, &ConsoleOpts{W: &buf, Backlit: DefaultConsoleOpts.Backlit, Unlit: DefaultConsoleOpts.Unlit})
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Hello█") {
		t.Errorf("console output missing text: %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected 2 lines, output %q", out)
	}
	buf.Reset()
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\r\033[2A") {
		t.Errorf("second refresh should redraw in place: %q", buf.String())
	}
}

func TestPrintable(t *testing.T) {
	if s := Printable("a\x01\xff\x80"); s != "a?█?" {
		t.Errorf("Printable() = %q", s)
	}
}

func TestSnapshot(t *testing.T) {
	p := getPanel(t, 4)
	bringUp(t, p)
	for _, c := range []byte("snap\xff") {
		send(t, p, c, true)
	}
	img, err := p.Snapshot(&SnapshotOpts{CellWidth: 10})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	// 2*10 + 16*12 - 2 wide, 2*10 + 4*(16+2) - 2 high.
	if b.Dx() != 210 || b.Dy() != 90 {
		t.Errorf("unexpected snapshot size %v", b)
	}
	// The full block at column 4 is drawn in ink.
	r, g, bl, _ := img.At(10+4*12+5, 10+8).RGBA()
	ir, ig, ib, _ := DefaultSnapshotOpts.Ink.RGBA()
	if r != ir || g != ig || bl != ib {
		t.Errorf("expected ink at block glyph, found %d,%d,%d", r>>8, g>>8, bl>>8)
	}
}
