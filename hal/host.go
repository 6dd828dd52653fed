//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	btn    *hostButton
	serial *hostSerial
	fb     *hostFramebuffer
	t      *hostTime
}

// New returns the host HAL implementation.
func New() HAL {
	logger := &hostLogger{w: os.Stdout}
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		btn:    &hostButton{},
		serial: &hostSerial{w: os.Stdout},
		fb:     newHostFramebuffer(480, 320),
		t:      newHostTime(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Button() Button   { return h.btn }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	on     atomic.Bool
	logger *hostLogger
}

func (l *hostLED) High() {
	if !l.on.Swap(true) {
		l.logger.WriteLineString("[led] on")
	}
}

func (l *hostLED) Low() {
	if l.on.Swap(false) {
		l.logger.WriteLineString("[led] off")
	}
}

// hostButton is driven by the window backend (space bar) and stays released
// in headless mode.
type hostButton struct {
	down atomic.Bool
}

func (b *hostButton) Pressed() bool { return b.down.Load() }

func (b *hostButton) set(down bool) { b.down.Store(down) }

type hostSerial struct {
	mu sync.Mutex
	w  *os.File
}

func (s *hostSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
