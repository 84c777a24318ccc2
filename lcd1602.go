// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcd1602

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

// Display geometry. The DDRAM addressing below is specific to the 16x2
// module; other HD44780 geometries need different row offsets.
const (
	// Cols is the number of visible columns per row.
	Cols = 16
	// Rows is the number of rows.
	Rows = 2
)

// I²C addresses of the backpack with all address pins left high.
const (
	// DefaultAddress is the PCF8574 backpack address.
	DefaultAddress uint16 = 0x27
	// AltAddress is the PCF8574A variant of the same backpack.
	AltAddress uint16 = 0x3f
)

const packageName = "lcd1602"

// PCF8574 port bit assignment of the common backpack. The upper four port
// lines carry the LCD data bus D4-D7.
const (
	rsBit byte = 0x01 // register select, data when set
	rwBit byte = 0x02 // read/write select, held low (write)
	enBit byte = 0x04 // enable, the falling edge latches D4-D7
	blBit byte = 0x08 // backlight transistor
)

// HD44780 command bytes, pre-composed with their option bits.
const (
	cmdClear       byte = 0x01
	cmdHome        byte = 0x02
	cmdEntryMode   byte = 0x06 // increment cursor, no display shift
	cmdDisplayOff  byte = 0x08
	cmdDisplayOn   byte = 0x0c // display on, cursor off, blink off
	cmdFunctionSet byte = 0x28 // 4 bit bus, 2 lines, 5x8 font
	cmdRow1        byte = 0xc0 // DDRAM address 0x40, first column of row 1
)

// Execution delays. The controller offers no busy flag through this backpack
// wiring, so every transfer waits out the datasheet maximums with margin.
const (
	delayEnable  = 1 * time.Microsecond  // EN high hold
	delaySettle  = 50 * time.Microsecond // instruction execution after latch
	delayCommand = 1 * time.Millisecond  // configuration commands
	delayClear   = 2 * time.Millisecond  // ClearDisplay and ReturnHome
	delayReset   = 5 * time.Millisecond  // first wake-up nibble
	delayPowerOn = 50 * time.Millisecond // controller's own power-on reset
)

const (
	// maxWrite is the most input one Write call consumes.
	maxWrite = 64
	// renderLimit is how many bytes fit on the panel.
	renderLimit = Rows * Cols
)

var (
	errNoBus          = errors.New("no bus provided")
	errInvalidAddress = errors.New("address not reachable by a PCF8574")
)

// Opts holds the configuration for the display.
type Opts struct {
	// Addr is the I²C address of the PCF8574 backpack.
	Addr uint16

	// sleep substitutes for time.Sleep in tests.
	sleep func(time.Duration)
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: DefaultAddress}

// Dev is a handle to one LCD module. All methods serialize on an internal
// lock held for the whole logical operation, so concurrent callers never
// interleave characters on the panel.
type Dev struct {
	mu        sync.Mutex
	d         *i2c.Dev
	backlight bool
	on        bool
	sleep     func(time.Duration)
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// The expander's three address pins select 0x20-0x27, or 0x38-0x3f on the
// PCF8574A die.
func isValidAddress(address uint16) error {
	if (address >= 0x20 && address <= 0x27) || (address >= 0x38 && address <= 0x3f) {
		return nil
	}
	return errInvalidAddress
}

// New opens the display on bus and runs the power-on initialization. opts
// can be nil for the defaults. On any failure the display is not exposed:
// New returns a nil Dev and the first error encountered.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if bus == nil {
		return nil, wrap(errNoBus)
	}
	if err := isValidAddress(opts.Addr); err != nil {
		return nil, wrap(err)
	}
	slp := opts.sleep
	if slp == nil {
		slp = time.Sleep
	}
	dev := &Dev{
		d:         &i2c.Dev{Bus: bus, Addr: opts.Addr},
		backlight: true,
		on:        true,
		sleep:     slp,
	}
	dev.mu.Lock()
	err := dev.init()
	dev.mu.Unlock()
	if err != nil {
		return nil, wrap(err)
	}
	return dev, nil
}

// init forces the controller out of its unknown power-on state into the
// 4 bit interface and programs the fixed function, display and entry setup.
// The order and the minimum waits come from the datasheet initialization
// flowchart. There is no branching; the first error aborts the remainder.
func (dev *Dev) init() error {
	steps := []struct {
		raw   bool // a bare high nibble, sent before the bus width is known
		value byte
		wait  time.Duration
	}{
		{true, 0x03, delayReset},   // wake up, regardless of current width
		{true, 0x03, delayCommand}, // second of three
		{true, 0x03, delayCommand}, // third of three
		{true, 0x02, delayCommand}, // switch to the 4 bit interface
		{false, cmdFunctionSet, delayCommand},
		{false, cmdDisplayOn, delayCommand},
		{false, cmdClear, delayClear},
		{false, cmdEntryMode, delayCommand},
	}

	dev.sleep(delayPowerOn)
	for _, step := range steps {
		var err error
		if step.raw {
			err = dev.writeNibble(step.value, false)
		} else {
			err = dev.sendCommand(step.value)
		}
		if err != nil {
			return err
		}
		dev.sleep(step.wait)
	}
	return nil
}

// writePort performs the single byte bus write every other operation reduces
// to. No retries; the error is the caller's to act on.
func (dev *Dev) writePort(image byte) error {
	return dev.d.Tx([]byte{image}, nil)
}

// writeNibble places value on D4-D7 together with the control bits and
// strobes EN. The only place port images are built: RS and the backlight bit
// are synthesized here, R/W stays low. Neither write nor either delay may be
// skipped, or the controller misses the latch.
func (dev *Dev) writeNibble(value byte, isData bool) error {
	image := value << 4
	if isData {
		image |= rsBit
	}
	if dev.backlight {
		image |= blBit
	}
	if err := dev.writePort(image | enBit); err != nil {
		return err
	}
	dev.sleep(delayEnable)
	if err := dev.writePort(image); err != nil {
		return err
	}
	dev.sleep(delaySettle)
	return nil
}

// sendCommand transfers one command byte, high nibble first. A failed high
// nibble aborts before the low nibble so a byte is never half latched.
func (dev *Dev) sendCommand(b byte) error {
	if err := dev.writeNibble(b>>4, false); err != nil {
		return err
	}
	return dev.writeNibble(b&0x0f, false)
}

// sendData transfers one character byte, high nibble first.
func (dev *Dev) sendData(b byte) error {
	if err := dev.writeNibble(b>>4, true); err != nil {
		return err
	}
	return dev.writeNibble(b&0x0f, true)
}

// Write repaints the display with p. The panel is cleared, bytes 0-15 land
// on row 0 and bytes 16-31 on row 1. Longer input is consumed and counted
// but not shown. At most 64 bytes are consumed per call; beyond that Write
// returns n=64 with io.ErrShortWrite.
//
// A zero length write performs no bus traffic. On a bus failure n is the
// number of characters already on the panel; there is no rollback.
func (dev *Dev) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	short := false
	if len(p) > maxWrite {
		p = p[:maxWrite]
		short = true
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	if err = dev.sendCommand(cmdClear); err != nil {
		return 0, wrap(err)
	}
	dev.sleep(delayClear)
	if err = dev.sendCommand(cmdHome); err != nil {
		return 0, wrap(err)
	}
	dev.sleep(delayClear)

	render := len(p)
	if render > renderLimit {
		render = renderLimit
	}
	for i := 0; i < render; i++ {
		if i == Cols {
			if err = dev.sendCommand(cmdRow1); err != nil {
				return i, wrap(err)
			}
			dev.sleep(delayCommand)
		}
		if err = dev.sendData(p[i]); err != nil {
			return i, wrap(err)
		}
	}
	if short {
		return len(p), io.ErrShortWrite
	}
	return len(p), nil
}

// WriteString writes text to the display.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.Write([]byte(text))
}

// Clear erases the panel and moves the cursor to row 0, column 0.
func (dev *Dev) Clear() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.sendCommand(cmdClear)
	if err == nil {
		dev.sleep(delayClear)
	}
	return wrap(err)
}

// Home moves the cursor to row 0, column 0 without erasing.
func (dev *Dev) Home() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.sendCommand(cmdHome)
	if err == nil {
		dev.sleep(delayClear)
	}
	return wrap(err)
}

// Display turns the panel on or off. DDRAM contents survive an off period.
// The cursor and blink stay off either way.
func (dev *Dev) Display(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.on = on
	cmd := cmdDisplayOff
	if on {
		cmd = cmdDisplayOn
	}
	err := dev.sendCommand(cmd)
	if err == nil {
		dev.sleep(delayCommand)
	}
	return wrap(err)
}

// Backlight switches the backlight LED. The PCF8574 line is on/off only, so
// any nonzero intensity turns it on. One bare port image is written
// immediately and the new state rides along on every later transaction.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.backlight = intensity > 0
	var image byte
	if dev.backlight {
		image = blBit
	}
	return wrap(dev.writePort(image))
}

// Halt clears the panel and switches the backlight off. It is the detach
// hook: bus errors during teardown are discarded and Halt always returns
// nil. A halted Dev is not reusable; construct a fresh one with New.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.sendCommand(cmdClear); err == nil {
		dev.sleep(delayClear)
	}
	dev.backlight = false
	_ = dev.writePort(0x00)
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s{%s}", packageName, dev.d)
}

var _ conn.Resource = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ io.Writer = &Dev{}
