// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd160x

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Variant is the physical layout of the module. Both layouts are 16 columns.
type Variant string

const (
	LCD16x2 Variant = "16x2"
	LCD16x4 Variant = "16x4"

	// Cols is the number of visible columns on every supported module.
	Cols = 16

	// MaxPrecision is the largest number of decimals PrintFloat accepts.
	MaxPrecision = Cols

	// BlockGlyph is the fully shaded character in the controller's ROM.
	BlockGlyph byte = 0xff
)

// Rows returns the number of rows of the layout, or 0 for an unknown value.
func (v Variant) Rows() int {
	switch v {
	case LCD16x2:
		return 2
	case LCD16x4:
		return 4
	}
	return 0
}

func (v Variant) String() string {
	return string(v)
}

// ParseVariant accepts "16x2", "1602", "16x4" and "1604".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "16x2", "1602":
		return LCD16x2, nil
	case "16x4", "1604":
		return LCD16x4, nil
	}
	return "", invalidArgument("unknown variant %q", s)
}

// Controller commands.
const (
	cmdClear          byte = 0x01
	cmdHome           byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdShift          byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetDDRAM       byte = 0x80

	entryIncrement byte = 0x02
	entryShift     byte = 0x01

	displayOn  byte = 0x04
	cursorOn   byte = 0x02
	blinkOn    byte = 0x01
	shiftRight byte = 0x04

	// 4 bit interface, 2 lines, 5x8 font.
	functionSet4Bit2Line = cmdFunctionSet | 0x08
)

// Bring-up timing. The values are datasheet minimums rounded up.
const (
	powerOnDelay     = 20 * time.Millisecond
	resetSettleDelay = 5 * time.Millisecond
	modeSettleDelay  = time.Millisecond
	clearDelay       = 2 * time.Millisecond
)

// rowBase is the DDRAM address of column 0 for each row of a 16 column
// module.
var rowBase = [4]byte{0x00, 0x40, 0x10, 0x50}

// Opts configures a Dev.
type Opts struct {
	// Variant selects the 2 or 4 row layout.
	Variant Variant
	// PulseWidth is how long E is held high and then low. Zero means
	// DefaultPulseWidth.
	PulseWidth time.Duration
	// Logger receives operation traces at debug level and failures at error
	// level. Nil means logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultOpts is used when New is passed nil options.
var DefaultOpts = Opts{
	Variant:    LCD16x2,
	PulseWidth: DefaultPulseWidth,
}

// Dev is an HD44780 compatible 16 column character LCD driven in 4 bit mode
// through an 8 bit I/O expander.
//
// Dev is not safe for concurrent use. Interleaving two operations would break
// the pairing of nibbles, so callers sharing a Dev must serialize access.
type Dev struct {
	exp         Expander
	variant     Variant
	initialized bool

	on         bool
	cursor     bool
	blink      bool
	autoScroll bool
	backlight  bool

	pulseWidth time.Duration
	log        logrus.FieldLogger
	sleep      func(time.Duration)
}

// New runs the bring-up sequence on the controller behind exp and returns the
// display.
//
// ErrNotInitialized is returned with a nil Dev if exp is nil or not ready. If
// the bring-up fails on an expander write, the Dev is returned together with
// the error so that Init can be retried.
func New(exp Expander, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev, err := newDev(exp, opts)
	if err != nil {
		return nil, err
	}
	if err := dev.Init(opts.Variant); err != nil {
		return dev, err
	}
	return dev, nil
}

// Attach returns a display for a controller that an earlier New or Init
// already brought up, possibly from another process. Nothing is sent: the
// display RAM is kept, and the Dev assumes the state Init leaves behind
// (display and backlight on, cursor off, auto increment). A controller that
// was never brought up since power on shows garbage until Init is called.
func Attach(exp Expander, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev, err := newDev(exp, opts)
	if err != nil {
		return nil, err
	}
	dev.variant = opts.Variant
	dev.resetState()
	dev.initialized = true
	return dev, nil
}

func newDev(exp Expander, opts *Opts) (*Dev, error) {
	if exp == nil || !exp.Ready() {
		return nil, ErrNotInitialized
	}
	if opts.Variant.Rows() == 0 {
		return nil, invalidArgument("unknown variant %q", opts.Variant)
	}
	dev := &Dev{
		exp:        exp,
		pulseWidth: opts.PulseWidth,
		log:        opts.Logger,
		sleep:      time.Sleep,
	}
	if dev.pulseWidth <= 0 {
		dev.pulseWidth = DefaultPulseWidth
	}
	if dev.log == nil {
		dev.log = logrus.StandardLogger()
	}
	return dev, nil
}

// Init brings the controller from an unknown state into 4 bit, 2 line mode
// with the display on, cursor and blink off, and auto increment. It may be
// called again at any time to recover from a transport failure or to switch
// the layout.
func (dev *Dev) Init(variant Variant) error {
	return dev.run("Init", false, func() error {
		if variant.Rows() == 0 {
			return invalidArgument("unknown variant %q", variant)
		}
		dev.initialized = false
		if dev.exp == nil || !dev.exp.Ready() {
			return ErrNotInitialized
		}
		dev.variant = variant
		dev.resetState()
		if err := dev.bringUp(); err != nil {
			return err
		}
		dev.initialized = true
		return nil
	})
}

// bringUp is the reset by instruction procedure from the datasheet. The
// three 0x3 writes get the controller into 8 bit mode whatever mode it
// powered up in; 0x2 then switches it to 4 bit mode.
func (dev *Dev) bringUp() error {
	dev.sleep(powerOnDelay)
	for range 3 {
		if err := dev.writeRaw(0x03 << 4); err != nil {
			return err
		}
		dev.sleep(resetSettleDelay)
	}
	if err := dev.writeRaw(0x02 << 4); err != nil {
		return err
	}
	dev.sleep(modeSettleDelay)
	for range 3 {
		if err := dev.sendCommand(functionSet4Bit2Line); err != nil {
			return err
		}
	}
	if err := dev.sendCommand(dev.displayControl()); err != nil {
		return err
	}
	if err := dev.sendCommand(cmdClear); err != nil {
		return err
	}
	dev.sleep(clearDelay)
	return dev.sendCommand(dev.entryMode())
}

// resetState sets the display-control and entry mode flags to what the
// bring-up programs.
func (dev *Dev) resetState() {
	dev.on, dev.cursor, dev.blink, dev.autoScroll = true, false, false, false
	dev.backlight = true
}

// Variant returns the layout set by the last Init or Attach.
func (dev *Dev) Variant() Variant {
	return dev.variant
}

// Initialized reports whether the last Init completed.
func (dev *Dev) Initialized() bool {
	return dev.initialized
}

// Clear blanks the display and sets the address counter to 0.
func (dev *Dev) Clear() error {
	return dev.run("Clear", true, func() error {
		if err := dev.sendCommand(cmdClear); err != nil {
			return err
		}
		dev.sleep(clearDelay)
		return nil
	})
}

// SetCursor moves the address counter to row, col. Both are 0 based.
func (dev *Dev) SetCursor(row, col int) error {
	return dev.run("SetCursor", true, func() error {
		if err := dev.checkPosition(row, col); err != nil {
			return err
		}
		return dev.setCursor(row, col)
	})
}

// PrintText writes text starting at the current cursor position. The
// controller advances the cursor; text longer than the rest of the row runs
// on into the next DDRAM addresses, which is not necessarily the next row.
func (dev *Dev) PrintText(text string) error {
	return dev.run("PrintText", true, func() error {
		if len(text) == 0 {
			return invalidArgument("empty text")
		}
		return dev.writeText(text)
	})
}

// PrintInt writes v in base 10.
func (dev *Dev) PrintInt(v int) error {
	return dev.run("PrintInt", true, func() error {
		return dev.writeText(strconv.Itoa(v))
	})
}

// PrintFloat writes v with exactly precision decimals.
func (dev *Dev) PrintFloat(v float64, precision int) error {
	return dev.run("PrintFloat", true, func() error {
		if precision < 0 || precision > MaxPrecision {
			return invalidArgument("precision %d out of range [0, %d]", precision, MaxPrecision)
		}
		return dev.writeText(strconv.FormatFloat(v, 'f', precision, 64))
	})
}

// PrintProgressBar fills row with percent*16/100 (rounded down) block glyphs
// followed by spaces. The cursor is left past the end of the row.
func (dev *Dev) PrintProgressBar(row, percent int) error {
	return dev.run("PrintProgressBar", true, func() error {
		if err := dev.checkRow(row); err != nil {
			return err
		}
		if percent < 0 || percent > 100 {
			return invalidArgument("percentage %d out of range [0, 100]", percent)
		}
		filled := percent * Cols / 100
		if err := dev.setCursor(row, 0); err != nil {
			return err
		}
		for col := range Cols {
			c := byte(' ')
			if col < filled {
				c = BlockGlyph
			}
			if err := dev.sendData(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearRow blanks row and leaves the cursor at its first column.
func (dev *Dev) ClearRow(row int) error {
	return dev.run("ClearRow", true, func() error {
		if err := dev.checkRow(row); err != nil {
			return err
		}
		if err := dev.setCursor(row, 0); err != nil {
			return err
		}
		if err := dev.writeText(strings.Repeat(" ", Cols)); err != nil {
			return err
		}
		return dev.setCursor(row, 0)
	})
}

// EnableCursor shows the underline cursor, blinking if blink is set. The
// display is switched on.
func (dev *Dev) EnableCursor(blink bool) error {
	return dev.run("EnableCursor", true, func() error {
		return dev.setDisplayControl(true, true, blink)
	})
}

// DisableCursor hides the cursor and stops blinking. The display is switched
// on.
func (dev *Dev) DisableCursor() error {
	return dev.run("DisableCursor", true, func() error {
		return dev.setDisplayControl(true, false, false)
	})
}

// run wraps a public operation with the initialized check, error tagging and
// logging.
func (dev *Dev) run(op string, needInit bool, fn func() error) error {
	log := dev.logger().WithField("op", op)
	log.Debug("lcd160x: started")
	var err error
	if needInit && !dev.initialized {
		err = ErrNotInitialized
	} else {
		err = withOp(op, fn())
	}
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			log = log.WithField("step", te.Step)
		}
		log.WithError(err).Error("lcd160x: failed")
		return err
	}
	log.Debug("lcd160x: completed")
	return nil
}

func (dev *Dev) logger() logrus.FieldLogger {
	if dev.log == nil {
		return logrus.StandardLogger()
	}
	return dev.log
}

func (dev *Dev) checkRow(row int) error {
	if row < 0 || row >= dev.variant.Rows() {
		return invalidArgument("row %d out of range for %s", row, dev.variant)
	}
	return nil
}

func (dev *Dev) checkPosition(row, col int) error {
	if err := dev.checkRow(row); err != nil {
		return err
	}
	if col < 0 || col >= Cols {
		return invalidArgument("column %d out of range [0, %d)", col, Cols)
	}
	return nil
}

// ddramAddress returns the DDRAM address of row, col. The caller validates
// both.
func ddramAddress(row, col int) byte {
	return rowBase[row] + byte(col)
}

func (dev *Dev) setCursor(row, col int) error {
	return dev.sendCommand(cmdSetDDRAM | ddramAddress(row, col))
}

func (dev *Dev) writeText(text string) error {
	for i := range len(text) {
		if err := dev.sendData(text[i]); err != nil {
			return err
		}
	}
	return nil
}

func (dev *Dev) displayControl() byte {
	v := cmdDisplayControl
	if dev.on {
		v |= displayOn
	}
	if dev.cursor {
		v |= cursorOn
	}
	if dev.blink {
		v |= blinkOn
	}
	return v
}

func (dev *Dev) setDisplayControl(on, cursor, blink bool) error {
	prevOn, prevCursor, prevBlink := dev.on, dev.cursor, dev.blink
	dev.on, dev.cursor, dev.blink = on, cursor, blink
	if err := dev.sendCommand(dev.displayControl()); err != nil {
		dev.on, dev.cursor, dev.blink = prevOn, prevCursor, prevBlink
		return err
	}
	return nil
}

func (dev *Dev) entryMode() byte {
	v := cmdEntryMode | entryIncrement
	if dev.autoScroll {
		v |= entryShift
	}
	return v
}
