// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd1602 controls a 16x2 character LCD (HD44780 controller) through
// a PCF8574 I²C port expander, the "I²C backpack" sold with most of these
// displays.
//
// The PCF8574 is the only device the host talks to. Its eight port lines
// carry the LCD's upper data bus (D4-D7) and the RS, R/W, EN and backlight
// control lines, so every half of every command or character byte is
// delivered as one single-byte I²C write followed by an enable strobe with
// datasheet pulse timing. The driver runs the controller's 4 bit interface,
// is strictly write-only (R/W stays low, the busy flag is never polled) and
// uses fixed execution delays instead.
//
// Writes replace the whole display: the first 16 bytes fill row 0, the next
// 16 fill row 1, anything further is accepted but not shown. Dev implements
// io.Writer, conn.Resource and display.DisplayBacklight. It intentionally
// does not implement display.TextDisplay, whose Write appends at a cursor
// position rather than repainting the panel.
//
// # Wiring
//
// The standard backpack wiring, fixed in this driver:
//
//	PCF8574 P0 → RS
//	PCF8574 P1 → R/W
//	PCF8574 P2 → EN
//	PCF8574 P3 → backlight transistor
//	PCF8574 P4-P7 → LCD D4-D7
//
// The expander answers on 0x20-0x27 (PCF8574) or 0x38-0x3F (PCF8574A),
// selected by its three address pins. Backpacks usually leave them floating
// high: 0x27 or 0x3F.
//
// # Usage
//
//	bus, err := i2creg.Open("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer bus.Close()
//
//	dev, err := lcd1602.New(bus, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Halt()
//
//	dev.WriteString("Hello World!")
//
// The hd44780sim package in this module emulates the expander and controller
// behind an i2c.Bus, so everything above also runs without hardware; the
// lcdsink package serves the emulated panel over HTTP.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package lcd1602
