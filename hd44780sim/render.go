// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780sim

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// RenderOpts represents the options available for the image renderer.
type RenderOpts struct {
	// Scale is the pixel size of one layout unit. Rendered images grow
	// linearly with it; zero selects the default.
	Scale int

	_ struct{}
}

// DefaultRenderOpts is the recommended default options.
var DefaultRenderOpts = RenderOpts{Scale: 3}

// Module geometry in layout units.
const (
	glyphW      = 6
	glyphH      = 9
	glyphGap    = 1
	bezelMargin = 4
	captionH    = 4
)

// Renderer draws a Panel into an image, bezel, glass and caption included.
type Renderer struct {
	scale int
	face  font.Face
}

// NewRenderer returns a renderer. opts can be nil for the defaults.
func NewRenderer(opts *RenderOpts) (*Renderer, error) {
	if opts == nil {
		opts = &DefaultRenderOpts
	}
	s := opts.Scale
	if s <= 0 {
		s = DefaultRenderOpts.Scale
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("hd44780sim: parsing builtin font: %v", err)
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size: 7 * float64(s),
	})
	return &Renderer{scale: s, face: face}, nil
}

// Bounds returns the size of rendered images.
func (r *Renderer) Bounds() image.Rectangle {
	w := 2*bezelMargin + cols*glyphW + (cols-1)*glyphGap
	h := 2*bezelMargin + rows*glyphH + (rows-1)*glyphGap + captionH
	return image.Rect(0, 0, w*r.scale, h*r.scale)
}

// Render draws the current panel contents into a freshly allocated image.
//
// Render is not goroutine safe: the glyph cache behind the font face is
// shared between calls.
func (r *Renderer) Render(p *Panel) image.Image {
	bounds := r.Bounds()
	s := float64(r.scale)
	px := func(u int) float64 { return float64(u) * s }

	lines := [rows]string{p.Line(0), p.Line(1)}
	lit := p.Backlight()

	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.SetRGB(0.12, 0.12, 0.14)
	dc.Clear()

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := px(bezelMargin + col*(glyphW+glyphGap))
			y := px(bezelMargin + row*(glyphH+glyphGap))
			dc.DrawRoundedRectangle(x, y, px(glyphW), px(glyphH), s/2)
			if lit {
				dc.SetRGB(0.06, 0.23, 0.62)
			} else {
				dc.SetRGB(0.08, 0.10, 0.16)
			}
			dc.Fill()
		}
	}

	dc.SetFontFace(r.face)
	if lit {
		dc.SetRGB(0.88, 0.93, 1.0)
	} else {
		dc.SetRGB(0.35, 0.40, 0.48)
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ch := lines[row][col]
			if ch == ' ' {
				continue
			}
			cx := px(bezelMargin+col*(glyphW+glyphGap)) + px(glyphW)/2
			cy := px(bezelMargin+row*(glyphH+glyphGap)) + px(glyphH)/2
			dc.DrawStringAnchored(string(ch), cx, cy, 0.5, 0.5)
		}
	}

	state := "off"
	if lit {
		state = "on"
	}
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0.62, 0.65, 0.70)
	caption := fmt.Sprintf("hd44780 16x2  addr %#02x  backlight %s", p.Addr(), state)
	dc.DrawString(caption, px(bezelMargin), float64(bounds.Dy())-s)

	return dc.Image()
}
