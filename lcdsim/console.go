// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options available for a Console.
type ConsoleOpts struct {
	// W receives the output. Nil means a colorable stdout.
	W io.Writer
	// Palette maps colors to ANSI codes. Nil means ansi256.Default.
	Palette *ansi256.Palette
	// Backlit is the background when the backlight is on.
	Backlit color.NRGBA
	// Unlit is the background when the backlight is off.
	Unlit color.NRGBA

	_ struct{}
}

// DefaultConsoleOpts is the classic yellow-green module.
var DefaultConsoleOpts = ConsoleOpts{
	Backlit: color.NRGBA{0x9b, 0xc8, 0x3c, 0xff},
	Unlit:   color.NRGBA{0x3a, 0x4a, 0x1a, 0xff},
}

// Console draws a Panel on a terminal using ANSI color codes, redrawing in
// place on every Refresh.
type Console struct {
	p       *Panel
	w       io.Writer
	palette ansi256.Palette
	backlit color.NRGBA
	unlit   color.NRGBA

	drawn int
	buf   bytes.Buffer
}

// NewConsole returns a Console for p.
func NewConsole(p *Panel, opts *ConsoleOpts) *Console {
	if opts == nil {
		opts = &DefaultConsoleOpts
	}
	pal := opts.Palette
	if pal == nil {
		pal = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Console{p: p, w: w, palette: *pal, backlit: opts.Backlit, unlit: opts.Unlit}
}

func (c *Console) String() string {
	return "Console(" + c.p.String() + ")"
}

// Refresh redraws the panel.
func (c *Console) Refresh() error {
	c.p.mu.Lock()
	lines := c.p.lines()
	on := c.p.on
	backlit := c.p.latch&bitBacklight != 0
	c.p.mu.Unlock()

	bg := c.unlit
	if backlit {
		bg = c.backlit
	}
	c.buf.Reset()
	if c.drawn > 0 {
		// Back to the top of the previous frame.
		fmt.Fprintf(&c.buf, "\r\033[%dA", c.drawn)
	}
	for _, line := range lines {
		_, _ = c.buf.WriteString("\r\033[0m")
		_, _ = io.WriteString(&c.buf, c.palette.Block(bg))
		if on {
			_, _ = c.buf.WriteString(Printable(line))
		} else {
			_, _ = c.buf.WriteString(fmt.Sprintf("%*s", Cols, ""))
		}
		_, _ = io.WriteString(&c.buf, c.palette.Block(bg))
		_, _ = c.buf.WriteString("\033[0m\n")
	}
	c.drawn = len(lines)
	_, err := c.buf.WriteTo(c.w)
	return err
}

// Printable maps character codes to what the ROM glyph looks like: 0xff is
// the full block, other codes outside ASCII are shown as '?'.
func Printable(line string) string {
	b := make([]rune, 0, len(line))
	for i := range len(line) {
		c := line[i]
		switch {
		case c == 0xff:
			b = append(b, '█')
		case c < 0x20 || c > 0x7e:
			b = append(b, '?')
		default:
			b = append(b, rune(c))
		}
	}
	return string(b)
}
