// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gomono"
)

// SnapshotOpts controls Snapshot.
type SnapshotOpts struct {
	// CellWidth is the width of a character cell in pixels. The cell height
	// is 8/5 of it, like the 5x8 font. Zero means 20.
	CellWidth float64
	Bezel     color.Color
	Backlit   color.Color
	Unlit     color.Color
	Ink       color.Color

	_ struct{}
}

// DefaultSnapshotOpts draws a yellow-green module with dark pixels.
var DefaultSnapshotOpts = SnapshotOpts{
	CellWidth: 20,
	Bezel:     color.NRGBA{0x20, 0x20, 0x20, 0xff},
	Backlit:   color.NRGBA{0x9b, 0xc8, 0x3c, 0xff},
	Unlit:     color.NRGBA{0x3a, 0x4a, 0x1a, 0xff},
	Ink:       color.NRGBA{0x1e, 0x2a, 0x10, 0xff},
}

// Snapshot renders the visible part of the panel into an image.
func (p *Panel) Snapshot(opts *SnapshotOpts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultSnapshotOpts
	}
	cw := opts.CellWidth
	if cw <= 0 {
		cw = DefaultSnapshotOpts.CellWidth
	}
	ch := cw * 8 / 5
	gap := cw / 5
	margin := cw

	p.mu.Lock()
	lines := p.lines()
	on := p.on
	backlit := p.latch&bitBacklight != 0
	p.mu.Unlock()

	w := 2*margin + Cols*(cw+gap) - gap
	h := 2*margin + float64(len(lines))*(ch+gap) - gap
	dc := gg.NewContext(int(w), int(h))
	dc.SetColor(orDefault(opts.Bezel, DefaultSnapshotOpts.Bezel))
	dc.Clear()

	bg := orDefault(opts.Unlit, DefaultSnapshotOpts.Unlit)
	if backlit {
		bg = orDefault(opts.Backlit, DefaultSnapshotOpts.Backlit)
	}
	dc.SetColor(bg)
	dc.DrawRoundedRectangle(margin/2, margin/2, w-margin, h-margin, margin/4)
	dc.Fill()
	if !on {
		return dc.Image(), nil
	}

	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("lcdsim: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: ch * 0.8}))
	dc.SetColor(orDefault(opts.Ink, DefaultSnapshotOpts.Ink))
	for row, line := range lines {
		y := margin + float64(row)*(ch+gap)
		for col := range len(line) {
			x := margin + float64(col)*(cw+gap)
			switch c := line[col]; {
			case c == 0xff:
				dc.DrawRectangle(x, y, cw, ch)
				dc.Fill()
			case c == ' ':
			default:
				dc.DrawStringAnchored(Printable(string(c)), x+cw/2, y+ch/2, 0.5, 0.35)
			}
		}
	}
	return dc.Image(), nil
}

// SavePNG writes a Snapshot to path.
func (p *Panel) SavePNG(path string, opts *SnapshotOpts) error {
	img, err := p.Snapshot(opts)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("lcdsim: %w", err)
	}
	return nil
}

func orDefault(c, def color.Color) color.Color {
	if c == nil {
		return def
	}
	return c
}
