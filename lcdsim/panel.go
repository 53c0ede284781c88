// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates a 16 column HD44780 character LCD sitting behind a
// PCF8574 backpack.
//
// Panel is a fake 8 bit expander: it decodes latch writes and the falling
// edges of the enable line back into controller instructions and characters,
// and keeps the controller's display RAM. It can inject transport failures
// and counts every call, which makes it the reference fake for testing code
// that drives the display. Console renders a Panel to a terminal and
// Snapshot renders it to an image.
package lcdsim

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Latch bits of the PCF8574 backpack.
const (
	bitRS        byte = 0x01
	bitRW        byte = 0x02
	bitE         byte = 0x04
	bitBacklight byte = 0x08

	lineE = 2

	// Cols is the number of visible columns.
	Cols = 16

	// lineLen is the number of DDRAM cells per line in 2 line mode.
	lineLen  = 40
	ddramLen = 0x80
)

// ErrInjected is returned by the call selected with FailAfter.
var ErrInjected = errors.New("lcdsim: injected transport failure")

// rowBase is the DDRAM address of the first visible column of each row.
var rowBase = [4]byte{0x00, 0x40, 0x10, 0x50}

// Panel is an emulated LCD1602 or LCD1604 module. The zero value is not
// usable; use New.
type Panel struct {
	mu   sync.Mutex
	rows int

	ready  bool
	calls  int
	failAt int

	latch    byte
	latches  []byte
	commands []byte
	data     []byte

	// Controller state.
	fourBit   bool
	havePart  bool
	part      byte
	ddram     [ddramLen]byte
	ac        byte
	increment bool
	autoShift bool
	on        bool
	cursor    bool
	blink     bool
	twoLine   bool
	shift     int
}

// New returns a ready panel with rows rows (2 or 4). The controller starts in
// 8 bit mode with the display off, like after power on.
func New(rows int) (*Panel, error) {
	if rows != 2 && rows != 4 {
		return nil, fmt.Errorf("lcdsim: unsupported row count %d", rows)
	}
	p := &Panel{rows: rows, ready: true, failAt: -1, increment: true}
	p.fillBlank()
	return p, nil
}

// Rows returns the number of rows of the module.
func (p *Panel) Rows() int {
	return p.rows
}

// WriteLatch implements lcd160x.Expander.
func (p *Panel) WriteLatch(value byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(); err != nil {
		return err
	}
	p.latches = append(p.latches, value)
	p.set(value)
	return nil
}

// SetLine implements lcd160x.Expander.
func (p *Panel) SetLine(line int, level gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if line < 0 || line > 7 {
		return fmt.Errorf("lcdsim: line %d out of range [0, 8)", line)
	}
	if err := p.call(); err != nil {
		return err
	}
	v := p.latch &^ (1 << line)
	if level {
		v |= 1 << line
	}
	p.set(v)
	return nil
}

// Ready implements lcd160x.Expander.
func (p *Panel) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// SetReady changes what Ready reports.
func (p *Panel) SetReady(ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
}

// FailAfter makes the transport call following the next n calls fail with
// ErrInjected. Later calls succeed again. A negative n disables injection.
func (p *Panel) FailAfter(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 {
		p.failAt = -1
		return
	}
	p.failAt = p.calls + n + 1
}

// Calls returns the number of WriteLatch and SetLine calls, failed ones
// included.
func (p *Panel) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Latches returns every value passed to WriteLatch.
func (p *Panel) Latches() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.latches...)
}

// Commands returns every instruction the controller executed. Instructions
// received in 8 bit mode only carry their high nibble.
func (p *Panel) Commands() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.commands...)
}

// Data returns every character code written to display RAM.
func (p *Panel) Data() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.data...)
}

// ResetLog forgets the recorded calls, latches, commands and data. The
// controller state is kept.
func (p *Panel) ResetLog() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = 0
	p.failAt = -1
	p.latches = nil
	p.commands = nil
	p.data = nil
}

// Address returns the address counter.
func (p *Panel) Address() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ac
}

// FourBit reports whether the controller was switched to 4 bit mode.
func (p *Panel) FourBit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fourBit
}

// DisplayOn reports whether the display is switched on.
func (p *Panel) DisplayOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// CursorOn reports whether the underline cursor is shown.
func (p *Panel) CursorOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// BlinkOn reports whether the cursor cell blinks.
func (p *Panel) BlinkOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blink
}

// Latch returns the current output of the expander, which is what reading
// the PCF8574 pins returns.
func (p *Panel) Latch() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latch
}

// Backlight reports the state of the backlight line.
func (p *Panel) Backlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latch&bitBacklight != 0
}

// Lines returns the character codes visible on each row, display shift
// applied. The content is returned even when the display is off.
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines()
}

func (p *Panel) lines() []string {
	out := make([]string, p.rows)
	for row := range p.rows {
		start := rowBase[row] & 0x40
		rel := int(rowBase[row] - start)
		b := make([]byte, Cols)
		for col := range Cols {
			pos := ((rel+col-p.shift)%lineLen + lineLen) % lineLen
			b[col] = p.ddram[int(start)+pos]
		}
		out[row] = string(b)
	}
	return out
}

func (p *Panel) String() string {
	return fmt.Sprintf("lcdsim{16x%d}", p.rows)
}

func (p *Panel) call() error {
	p.calls++
	if p.calls == p.failAt {
		p.failAt = -1
		return ErrInjected
	}
	return nil
}

// set updates the latch and clocks the controller on a falling edge of E.
func (p *Panel) set(v byte) {
	prev := p.latch
	p.latch = v
	if prev&bitE != 0 && v&bitE == 0 && prev&bitRW == 0 {
		p.clock(prev)
	}
}

func (p *Panel) clock(v byte) {
	nibble := v >> 4
	rs := v&bitRS != 0
	if !p.fourBit {
		// D0-D3 are not wired on the backpack and read as 0.
		p.exec(nibble<<4, rs)
		return
	}
	if !p.havePart {
		p.part = nibble
		p.havePart = true
		return
	}
	p.havePart = false
	p.exec(p.part<<4|nibble, rs)
}

func (p *Panel) exec(b byte, rs bool) {
	if rs {
		p.data = append(p.data, b)
		p.ddram[p.ac] = b
		p.advance()
		return
	}
	p.commands = append(p.commands, b)
	switch {
	case b&0x80 != 0:
		p.ac = b & 0x7f
	case b&0x40 != 0:
		// CGRAM address, character generator RAM is not emulated.
	case b&0x20 != 0:
		p.fourBit = b&0x10 == 0
		p.twoLine = b&0x08 != 0
		p.havePart = false
	case b&0x10 != 0:
		right := b&0x04 != 0
		if b&0x08 != 0 {
			if right {
				p.shift++
			} else {
				p.shift--
			}
		} else {
			p.move(right)
		}
	case b&0x08 != 0:
		p.on = b&0x04 != 0
		p.cursor = b&0x02 != 0
		p.blink = b&0x01 != 0
	case b&0x04 != 0:
		p.increment = b&0x02 != 0
		p.autoShift = b&0x01 != 0
	case b&0x02 != 0:
		p.ac = 0
		p.shift = 0
	case b&0x01 != 0:
		p.fillBlank()
		p.ac = 0
		p.shift = 0
		p.increment = true
	}
}

func (p *Panel) fillBlank() {
	for ix := range p.ddram {
		p.ddram[ix] = ' '
	}
}

// advance moves the address counter after a data write, shifting the display
// instead when auto shift is on.
func (p *Panel) advance() {
	p.move(p.increment)
	if p.autoShift {
		if p.increment {
			p.shift--
		} else {
			p.shift++
		}
	}
}

// move steps the address counter through the two 40 cell lines at 0x00 and
// 0x40.
func (p *Panel) move(forward bool) {
	if forward {
		p.ac = (p.ac + 1) & 0x7f
		switch p.ac {
		case 0x00 + lineLen:
			p.ac = 0x40
		case 0x40 + lineLen:
			p.ac = 0x00
		}
		return
	}
	switch p.ac {
	case 0x00:
		p.ac = 0x40 + lineLen - 1
	case 0x40:
		p.ac = lineLen - 1
	default:
		p.ac = (p.ac - 1) & 0x7f
	}
}
