// Package hal is the only contact point between the kernel and the outside
// world: the clock, the front-panel peripherals and the serial port. The
// host backend simulates the panel in a window (or headless); the board
// backend maps to real pins.
package hal

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

// Button is a debounced input pin.
type Button interface {
	Pressed() bool
}

// Serial is a byte-stream port.
type Serial interface {
	Write(p []byte) (int, error)
}

// Time provides the base tick stream. The tick duration is
// platform-defined; the kernel consumes exactly one call per period.
type Time interface {
	Ticks() <-chan uint64
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// RGB565 packs an 8-bit-per-channel color into the RGB565 pixel encoding.
func RGB565(r, g, b uint8) uint16 {
	return (uint16(r>>3)&0x1f)<<11 | (uint16(g>>2)&0x3f)<<5 | (uint16(b>>3) & 0x1f)
}

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer, if the platform has one.
type Display interface {
	Framebuffer() Framebuffer
}

// HAL bundles the platform services the system is wired to.
type HAL interface {
	Logger() Logger
	LED() LED
	Button() Button
	Serial() Serial
	Display() Display
	Time() Time
}
