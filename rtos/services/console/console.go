// Package console renders kernel and task log lines on the platform
// framebuffer. It registers as an ordinary driver service in the
// system-call table; presenting the frame runs as a kernel task on a
// cyclic event.
package console

import (
	"sync"

	"citadel/hal"
	"citadel/rtos/kernel"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Console is a terminal over the platform framebuffer. A nil framebuffer
// (headless board) degrades to a logger-only console.
type Console struct {
	mu    sync.Mutex
	log   hal.Logger
	disp  *fbDisplay
	term  *tinyterm.Terminal
	dirty bool
}

// New creates a console on the given display. Lines are mirrored to the
// logger.
func New(disp hal.Display, log hal.Logger) *Console {
	c := &Console{log: log}
	if disp == nil {
		return c
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return c
	}

	c.disp = newFBDisplay(fb)
	c.term = tinyterm.NewTerminal(c.disp)
	c.term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 8,
	})
	fb.ClearRGB(0, 0, 0)
	return c
}

// WriteLine appends one line to the console and the logger.
func (c *Console) WriteLine(b []byte) {
	c.mu.Lock()
	if c.term != nil {
		c.term.Write(b)
		c.term.Write([]byte{'\r', '\n'})
		c.dirty = true
	}
	c.mu.Unlock()

	if c.log != nil {
		c.log.WriteLineBytes(b)
	}
}

// Flush presents the framebuffer if anything changed since the last flush.
// Wired as a kernel task on a cyclic event.
func (c *Console) Flush(tc *kernel.TaskContext) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.term == nil || !c.dirty {
		return 0
	}
	c.dirty = false
	// The terminal draws straight into the framebuffer; presenting is the
	// display adapter's job.
	if c.disp.Display() != nil {
		return -1
	}
	return 0
}

// Syscall returns the console's service entry for the system-call table.
// Arguments are a process-space pointer/length pair naming the line;
// validation happens at the dispatcher's choke point.
func (c *Console) Syscall() kernel.SyscallFn {
	return func(cc *kernel.CallContext, args []uint32) uint32 {
		if len(args) < 2 {
			return 0
		}
		line := cc.Bytes(args[0], args[1], false)
		c.WriteLine(line)
		return uint32(len(line))
	}
}
