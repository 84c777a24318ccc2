// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsink

import (
	"bytes"
	"testing"

	"github.com/GermanBionicSystems/lcd1602/hd44780sim"
)

func newSink(t *testing.T) (*Sink, *hd44780sim.Panel) {
	t.Helper()
	panel := hd44780sim.New(nil)
	renderer, err := hd44780sim.NewRenderer(&hd44780sim.RenderOpts{Scale: 1})
	if err != nil {
		t.Fatal(err)
	}
	return New(panel, renderer, nil), panel
}

func TestNewHalt(t *testing.T) {
	d, _ := newSink(t)

	if err := d.Halt(); err != nil {
		t.Errorf("Halt() failed: %v", err)
	}
	if got := d.String(); got != "LCDSink" {
		t.Errorf("String() = %q", got)
	}
	if d.Bounds().Empty() {
		t.Error("Bounds() must not be empty")
	}
}

func TestInvalidateCoalesces(t *testing.T) {
	d, panel := newSink(t)
	panel.SetOnUpdate(d.Invalidate)
	cfg := imageConfig{format: PNG}

	a := d.grabSnapshot(cfg)
	if d.dirty {
		t.Fatal("expected a clean buffer after rendering")
	}

	// Repeated invalidations collapse into one pending render.
	d.Invalidate()
	d.Invalidate()
	if !d.dirty {
		t.Fatal("expected a dirty buffer after Invalidate")
	}
	b := d.grabSnapshot(cfg)
	if !bytes.Equal(a, b) {
		t.Error("re-rendering an unchanged panel must produce identical frames")
	}

	// A real panel change renders differently.
	if err := panel.Tx(panel.Addr(), []byte{0x08}, nil); err != nil {
		t.Fatal(err)
	}
	c := d.grabSnapshot(cfg)
	if bytes.Equal(a, c) {
		t.Error("a backlight change must produce a different frame")
	}
}
