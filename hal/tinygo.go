//go:build tinygo

package hal

import (
	"machine"
	"time"
)

type boardHAL struct {
	logger *boardSerial
	led    boardLED
	btn    boardButton
	t      *boardTime
}

// New returns the board HAL implementation. The on-board LED and the
// default console UART are used; a panel button is mapped if the board
// defines one.
func New() HAL {
	serial := &boardSerial{}
	led := boardLED{pin: machine.LED}
	led.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &boardHAL{
		logger: serial,
		led:    led,
		btn:    boardButton{},
		t:      newBoardTime(),
	}
}

func (h *boardHAL) Logger() Logger   { return h.logger }
func (h *boardHAL) LED() LED         { return h.led }
func (h *boardHAL) Button() Button   { return h.btn }
func (h *boardHAL) Serial() Serial   { return h.logger }
func (h *boardHAL) Display() Display { return nil }
func (h *boardHAL) Time() Time       { return h.t }

type boardLED struct {
	pin machine.Pin
}

func (l boardLED) High() { l.pin.High() }
func (l boardLED) Low()  { l.pin.Low() }

type boardButton struct{}

func (boardButton) Pressed() bool { return false }

// boardSerial writes to the default console UART.
type boardSerial struct{}

func (s *boardSerial) Write(p []byte) (int, error) {
	for _, b := range p {
		machine.Serial.WriteByte(b)
	}
	return len(p), nil
}

func (s *boardSerial) WriteLineString(line string) {
	s.Write([]byte(line))
	s.Write([]byte{'\r', '\n'})
}

func (s *boardSerial) WriteLineBytes(b []byte) {
	s.Write(b)
	s.Write([]byte{'\r', '\n'})
}

type boardTime struct {
	ch chan uint64
}

func newBoardTime() *boardTime {
	t := &boardTime{ch: make(chan uint64, 64)}
	go func() {
		tick := time.NewTicker(time.Millisecond)
		var seq uint64
		for range tick.C {
			seq++
			select {
			case t.ch <- seq:
			default:
			}
		}
	}()
	return t
}

func (t *boardTime) Ticks() <-chan uint64 { return t.ch }
