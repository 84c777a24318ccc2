// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsink streams rendered images of an emulated character LCD to
// HTTP clients. Client requests get an initial snapshot of the panel and are
// updated further on every visible change.
//
// The primary use case is developing LCD output on a host machine without
// the hardware attached: point a driver at an hd44780sim.Panel, wire the
// panel's update hook to Sink.Invalidate and watch the module in a browser.
//
// The protocol used is "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG)
// which is often used by IP cameras. Because of its better suitability for
// computer-drawn graphics the PNG image format is used by default. JPEG as
// a format can be selected via Options.Format or using the "format" URL
// parameter.
package lcdsink

import (
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/lcd1602/hd44780sim"
	"periph.io/x/conn/v3"
)

// Options for lcdsink devices.
type Options struct {
	// Format specifies the image format to send to clients.
	Format ImageFormat

	// Compression selects the PNG compression level. The zero value is
	// png.DefaultCompression.
	Compression png.CompressionLevel

	// Quality selects the JPEG quality in the range 1 to 100. Zero selects a
	// default suited for rendered graphics.
	Quality int
}

// Sink renders a panel on demand and streams the frames to HTTP clients.
type Sink struct {
	panel         *hd44780sim.Panel
	renderer      *hd44780sim.Renderer
	defaultFormat ImageFormat
	level         png.CompressionLevel
	jpegOpts      jpeg.Options

	mu       sync.Mutex
	dirty    bool
	buffer   image.Image
	clients  map[*client]struct{}
	snapshot map[imageConfig][]byte
}

var _ conn.Resource = (*Sink)(nil)
var _ http.Handler = (*Sink)(nil)

// New creates a sink streaming renderer's view of panel. opt can be nil for
// the defaults.
func New(panel *hd44780sim.Panel, renderer *hd44780sim.Renderer, opt *Options) *Sink {
	if opt == nil {
		opt = &Options{}
	}
	quality := opt.Quality
	if quality == 0 {
		quality = defaultJPEGQuality
	}
	return &Sink{
		panel:         panel,
		renderer:      renderer,
		defaultFormat: opt.Format,
		level:         opt.Compression,
		jpegOpts:      jpeg.Options{Quality: quality},
		dirty:         true,
		clients:       map[*client]struct{}{},
		snapshot:      map[imageConfig][]byte{},
	}
}

// String returns the name of the device.
func (d *Sink) String() string {
	return "LCDSink"
}

// Halt implements conn.Resource and terminates all running client requests
// asynchronously.
func (d *Sink) Halt() error {
	d.mu.Lock()
	d.terminateClientsLocked()
	d.mu.Unlock()

	return nil
}

// Bounds returns the size of streamed frames.
func (d *Sink) Bounds() image.Rectangle {
	return d.renderer.Bounds()
}

// Invalidate marks the current frame as stale and notifies connected
// clients. Wire it to the panel with panel.SetOnUpdate(sink.Invalidate).
//
// Rendering is deferred until a client asks for a frame; a burst of panel
// updates collapses into a single rendering pass.
func (d *Sink) Invalidate() {
	d.mu.Lock()
	d.dirty = true
	d.bufferChangedLocked()
	d.mu.Unlock()
}
