// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780sim emulates a 16x2 character LCD (HD44780 controller)
// wired behind a PCF8574 I²C port expander.
//
// Panel implements i2c.Bus, so a driver talks to it exactly as it would to
// the real backpack: single byte port writes carrying D4-D7 plus the RS, R/W,
// EN and backlight lines. The emulation latches nibbles on EN falling edges,
// follows the 8 bit to 4 bit interface switch through the reset idiom,
// decodes the controller command set and keeps an 80 byte DDRAM with the
// 16x2 address map. Protocol misuse (R/W high during a write, RS flipping
// between nibble halves, reads) is collected and available via Violations.
//
// Timing is not modeled; the emulation is purely sequential. Use it to check
// what ends up on the panel, not how fast it got there.
//
// TermView renders a Panel on an ANSI terminal, Renderer draws it into an
// image. The lcdsink package streams that image over HTTP.
package hd44780sim

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Port bit assignment of the emulated backpack, matching the common PCF8574
// boards.
const (
	rsBit byte = 0x01
	rwBit byte = 0x02
	enBit byte = 0x04
	blBit byte = 0x08
)

const (
	rows     = 2
	cols     = 16
	row1Addr = 0x40
)

// Opts holds the configuration for the emulated panel.
type Opts struct {
	// Addr is the bus address the panel answers on.
	Addr uint16
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: 0x27}

// Panel is an emulated HD44780 16x2 module behind a PCF8574.
type Panel struct {
	addr uint16

	mu       sync.Mutex
	port     byte // last value seen on the expander port
	fourBit  bool
	haveHigh bool // a high nibble half is pending
	high     byte
	highRS   bool

	ddram     [0x80]byte
	cgram     [64]byte
	ac        int
	inCGRAM   bool
	increment bool
	displayOn bool
	cursorOn  bool
	blinkOn   bool
	twoLines  bool
	backlight bool

	violations []string
	onUpdate   func()
}

// New returns an emulated panel. opts can be nil for the defaults.
func New(opts *Opts) *Panel {
	if opts == nil {
		opts = &DefaultOpts
	}
	p := &Panel{addr: opts.Addr, increment: true}
	for i := range p.ddram {
		p.ddram[i] = ' '
	}
	return p
}

func (p *Panel) String() string {
	return "hd44780sim"
}

// Addr returns the bus address the panel answers on.
func (p *Panel) Addr() uint16 {
	return p.addr
}

// SetSpeed implements i2c.Bus. The emulation has no clock; any speed is
// fine.
func (p *Panel) SetSpeed(f physic.Frequency) error {
	return nil
}

// Close implements i2c.BusCloser.
func (p *Panel) Close() error {
	return nil
}

// Tx accepts the single byte port writes a PCF8574 understands. Every byte
// in w is latched on the port in order. Read requests fail: the emulated
// backpack is used write-only.
func (p *Panel) Tx(addr uint16, w, r []byte) error {
	if addr != p.addr {
		return fmt.Errorf("hd44780sim: no device at %#02x", addr)
	}
	if len(r) != 0 {
		p.mu.Lock()
		p.violate("read transaction on a write-only device")
		p.mu.Unlock()
		return errors.New("hd44780sim: read not supported")
	}
	p.mu.Lock()
	changed := false
	for _, b := range w {
		if p.latch(b) {
			changed = true
		}
	}
	hook := p.onUpdate
	p.mu.Unlock()
	if changed && hook != nil {
		hook()
	}
	return nil
}

// SetOnUpdate registers fn to run after every change to the visible panel:
// content, display on/off or backlight. fn runs outside the panel lock, on
// the goroutine that performed the write. A nil fn removes the hook.
func (p *Panel) SetOnUpdate(fn func()) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Line returns the 16 visible characters of row 0 or 1. Bytes outside
// printable ASCII come back as spaces; the CGROM and custom CGRAM glyphs are
// not modeled. A switched-off display reads as all spaces.
func (p *Panel) Line(row int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row < 0 || row >= rows {
		return ""
	}
	var sb strings.Builder
	base := 0
	if row == 1 {
		base = row1Addr
	}
	for i := 0; i < cols; i++ {
		c := p.ddram[base+i]
		if !p.displayOn || c < 0x20 || c > 0x7e {
			c = ' '
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Screen returns both lines joined by a newline.
func (p *Panel) Screen() string {
	return p.Line(0) + "\n" + p.Line(1)
}

// Backlight reports whether the backlight line is high.
func (p *Panel) Backlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlight
}

// DisplayOn reports whether the display is switched on.
func (p *Panel) DisplayOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayOn
}

// FourBit reports whether the controller has been switched to the 4 bit
// interface.
func (p *Panel) FourBit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fourBit
}

// Violations returns the protocol violations observed so far.
func (p *Panel) Violations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.violations...)
}

func (p *Panel) violate(msg string) {
	p.violations = append(p.violations, msg)
}

// latch applies one port value and reports whether anything visible changed.
// The controller samples D4-D7 and RS on the falling edge of EN.
func (p *Panel) latch(b byte) bool {
	changed := false
	if bl := b&blBit != 0; bl != p.backlight {
		p.backlight = bl
		changed = true
	}
	if b&rwBit != 0 {
		p.violate("R/W high during a write")
	}
	if p.port&enBit != 0 && b&enBit == 0 {
		if p.strobe(b) {
			changed = true
		}
	}
	p.port = b
	return changed
}

// strobe consumes one latched nibble. In 8 bit mode the nibble lands on
// D7-D4 with the low lines floating, which is exactly how the reset idiom
// reaches the controller. In 4 bit mode two strobes make a byte.
func (p *Panel) strobe(b byte) bool {
	nibble := b >> 4
	rs := b&rsBit != 0

	if !p.fourBit {
		return p.execute(nibble<<4, rs)
	}
	if !p.haveHigh {
		p.haveHigh = true
		p.high = nibble
		p.highRS = rs
		return false
	}
	if rs != p.highRS {
		p.violate("RS changed between nibble halves")
	}
	p.haveHigh = false
	return p.execute(p.high<<4|nibble, rs)
}

// execute runs one assembled instruction or data byte, highest set bit
// selecting the instruction.
func (p *Panel) execute(v byte, rs bool) bool {
	if rs {
		return p.writeRAM(v)
	}
	switch {
	case v&0x80 != 0: // set DDRAM address
		p.inCGRAM = false
		p.ac = int(v & 0x7f)
	case v&0x40 != 0: // set CGRAM address
		p.inCGRAM = true
		p.ac = int(v & 0x3f)
	case v&0x20 != 0: // function set
		was := p.fourBit
		p.fourBit = v&0x10 == 0
		p.twoLines = v&0x08 != 0
		if p.fourBit != was {
			p.haveHigh = false
		}
	case v&0x10 != 0: // cursor or display shift
		if v&0x08 != 0 {
			p.violate("display shift is not modeled")
		} else {
			p.stepAC(v&0x04 != 0)
		}
	case v&0x08 != 0: // display control
		on := v&0x04 != 0
		changed := on != p.displayOn
		p.displayOn = on
		p.cursorOn = v&0x02 != 0
		p.blinkOn = v&0x01 != 0
		return changed
	case v&0x04 != 0: // entry mode set
		p.increment = v&0x02 != 0
		if v&0x01 != 0 {
			p.violate("shifted entry mode is not modeled")
		}
	case v&0x02 != 0: // return home
		p.inCGRAM = false
		p.ac = 0
	case v&0x01 != 0: // clear display
		for i := range p.ddram {
			p.ddram[i] = ' '
		}
		p.ac = 0
		p.inCGRAM = false
		p.increment = true
		return true
	default:
		p.violate("null instruction")
	}
	return false
}

func (p *Panel) writeRAM(v byte) bool {
	if p.inCGRAM {
		p.cgram[p.ac&0x3f] = v
		p.ac = (p.ac + 1) & 0x3f
		return false
	}
	visible := p.displayOn && visibleAddr(p.ac)
	p.ddram[p.ac&0x7f] = v
	p.stepAC(p.increment)
	return visible
}

func visibleAddr(ac int) bool {
	return (ac >= 0x00 && ac < cols) || (ac >= row1Addr && ac < row1Addr+cols)
}

// stepAC moves the address counter with the two row wrap of the 16x2 DDRAM
// map: row 0 spans 0x00-0x27, row 1 spans 0x40-0x67.
func (p *Panel) stepAC(up bool) {
	if up {
		switch p.ac {
		case 0x27:
			p.ac = 0x40
		case 0x67:
			p.ac = 0x00
		default:
			p.ac = (p.ac + 1) & 0x7f
		}
		return
	}
	switch p.ac {
	case 0x40:
		p.ac = 0x27
	case 0x00:
		p.ac = 0x67
	default:
		p.ac--
	}
}

var _ i2c.Bus = &Panel{}
var _ i2c.BusCloser = &Panel{}
