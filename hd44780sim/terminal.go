// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780sim

import (
	"bytes"
	"image/color"
	"io"
	"strings"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
)

// TermOpts represents the options available for the terminal view.
type TermOpts struct {
	Palette *ansi256.Palette

	_ struct{}
}

// TermView draws a Panel on the console using ANSI escape codes, redrawing
// the frame in place on every refresh.
//
// Useful while you are waiting for your character LCD to come by mail.
type TermView struct {
	p       *Panel
	w       io.Writer
	palette ansi256.Palette

	mu    sync.Mutex
	drawn bool
	buf   bytes.Buffer
}

// NewTermView returns a TermView that displays p at the console. opts can be
// nil for the defaults.
func NewTermView(p *Panel, opts *TermOpts) *TermView {
	var pal *ansi256.Palette
	if opts != nil {
		pal = opts.Palette
	}
	if pal == nil {
		pal = ansi256.Default
	}
	return &TermView{p: p, w: colorable.NewColorableStdout(), palette: *pal}
}

func (v *TermView) String() string {
	return "TermView"
}

// Halt implements conn.Resource.
//
// It moves past the frame and resets the terminal colors.
func (v *TermView) Halt() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := v.w.Write([]byte("\n\033[0m"))
	return err
}

var frameBorder = "+" + strings.Repeat("-", cols) + "+"

// Refresh redraws the panel frame. The backlight state shows as a colored
// block next to the bottom border.
func (v *TermView) Refresh() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	lamp := color.NRGBA{0x20, 0x20, 0x20, 255}
	if v.p.Backlight() {
		lamp = color.NRGBA{0x40, 0xe0, 0x40, 255}
	}
	// This code is designed to minimize the amount of memory allocated per
	// call.
	v.buf.Reset()
	if v.drawn {
		_, _ = v.buf.WriteString("\033[4A\r")
	}
	v.drawn = true
	_, _ = v.buf.WriteString(frameBorder + "\n")
	_, _ = v.buf.WriteString("|" + v.p.Line(0) + "|\n")
	_, _ = v.buf.WriteString("|" + v.p.Line(1) + "|\n")
	_, _ = v.buf.WriteString(frameBorder + " " + v.palette.Block(lamp) + "\033[0m\n")
	_, err := v.buf.WriteTo(v.w)
	return err
}

var _ conn.Resource = &TermView{}
