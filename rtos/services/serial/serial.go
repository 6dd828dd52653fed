// Package serial exposes the platform serial port as a driver service in
// the system-call table.
package serial

import (
	"citadel/hal"
	"citadel/rtos/kernel"
)

// Service forwards validated task buffers to the serial port.
type Service struct {
	port hal.Serial
}

func New(port hal.Serial) *Service {
	return &Service{port: port}
}

// Syscall returns the write entry for the system-call table. Arguments are
// a process-space pointer/length pair; a range outside the caller's memory
// aborts the caller before the port sees anything.
func (s *Service) Syscall() kernel.SyscallFn {
	return func(cc *kernel.CallContext, args []uint32) uint32 {
		if len(args) < 2 || s.port == nil {
			return 0
		}
		b := cc.Bytes(args[0], args[1], false)
		n, err := s.port.Write(b)
		if err != nil {
			return 0
		}
		return uint32(n)
	}
}
