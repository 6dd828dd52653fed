// Package app wires the demo system: three user processes on top of the
// kernel, the console and serial driver services, and the tick pump. The
// reporting process blinks the panel LED and prints periodic status, the
// rogue process injects a stream of faults, and the supervisor process
// watches the failure counters and pulls the rogue from the system once
// it misbehaves enough.
package app

import (
	"citadel/hal"
	"citadel/rtos/kernel"
	"citadel/rtos/services/console"
	"citadel/rtos/services/serial"
)

// Driver system-call numbers of this image.
const (
	SysConsoleWrite uint32 = kernel.FirstDriverCall + iota
	SysSerialWrite
	SysLEDSet
	SysButtonRead
	SysPublishWord
	SysProcessFailures
)

// Process layout of the demo image.
const (
	PIDReport     kernel.PID = 1
	PIDRogue      kernel.PID = 2
	PIDSupervisor kernel.PID = 3
)

// Address map. Each process sees only its own ranges; the rogue gets a
// read-only range on purpose so it has something to trip over.
const (
	reportStackBase  = 0x1000
	reportPageBase   = 0x2000
	rogueStackBase   = 0x4000
	roguePageBase    = 0x5000 // read-only
	rogueScratchBase = 0x6000
	superStackBase   = 0x7000
	superPageBase    = 0x8000
)

// counterCeiling guards the redundant blink counters. Above every event
// that touches them, below the lockable limit.
const counterCeiling kernel.Priority = 6

// rogueFaultLimit is the failure count at which the supervisor pulls the
// rogue process.
const rogueFaultLimit = 5

type system struct {
	k    *kernel.Kernel
	cons *console.Console

	// Pages shared with the kernel-side memory regions; tasks stage
	// outgoing bytes here and pass process-space addresses to drivers.
	reportPage []byte
	superPage  []byte

	// Redundant blink counters, consistent only under counterCeiling.
	blinks       uint32
	blinksShadow uint32

	ledOn        bool
	rogueMode    uint32
	rogueStopped bool
}

// New builds, configures and starts the demo system. The returned
// function is the per-frame hook of the host window loop; it has no work
// to do, the frame is presented by a kernel task.
func New(h hal.HAL) func() error {
	_ = newSystem(h)
	return func() error { return nil }
}

// Run starts the demo system and blocks forever. Board entrypoint.
func Run(h hal.HAL) {
	_ = newSystem(h)
	select {}
}

func newSystem(h hal.HAL) *system {
	s := &system{
		k:          kernel.New(),
		cons:       console.New(h.Display(), h.Logger()),
		reportPage: make([]byte, 128),
		superPage:  make([]byte, 128),
	}
	k := s.k

	must(k.ConfigureProcess(PIDReport, kernel.ProcessConfig{
		StackBytes: 512,
		StackBase:  reportStackBase,
		Regions: []kernel.MemRegion{
			{Base: reportPageBase, Data: s.reportPage, Writable: true},
		},
	}))
	must(k.ConfigureProcess(PIDRogue, kernel.ProcessConfig{
		StackBytes: 256,
		StackBase:  rogueStackBase,
		Regions: []kernel.MemRegion{
			{Base: roguePageBase, Data: make([]byte, 64)},
			{Base: rogueScratchBase, Data: make([]byte, 64), Writable: true},
		},
	}))
	must(k.ConfigureProcess(PIDSupervisor, kernel.ProcessConfig{
		StackBytes: 512,
		StackBase:  superStackBase,
		Regions: []kernel.MemRegion{
			{Base: superPageBase, Data: s.superPage, Writable: true},
		},
	}))
	must(k.GrantSuspend(PIDSupervisor, PIDRogue))

	must(k.RegisterSyscall(SysConsoleWrite, s.cons.Syscall(), kernel.ClassFull))
	must(k.RegisterSyscall(SysSerialWrite, serial.New(h.Serial()).Syscall(), kernel.ClassFull))
	must(k.RegisterSyscall(SysLEDSet, ledSyscall(h.LED()), kernel.ClassBasic))
	must(k.RegisterSyscall(SysButtonRead, buttonSyscall(h.Button()), kernel.ClassSimple))
	must(k.RegisterSyscall(SysPublishWord, publishWord, kernel.ClassSimple))
	must(k.RegisterSyscall(SysProcessFailures, failureSyscall(k), kernel.ClassBasic))

	type eventDef struct {
		cfg      kernel.EventConfig
		fn       kernel.TaskFn
		pid      kernel.PID
		deadline uint32
	}
	for _, d := range []eventDef{
		{kernel.EventConfig{CycleTime: 5, Priority: 1}, s.cons.Flush, kernel.KernelPID, 0},
		{kernel.EventConfig{CycleTime: 50, Priority: 3}, s.blink, PIDReport, 10},
		{kernel.EventConfig{CycleTime: 100, FirstActivation: 10, Priority: 4}, s.report, PIDReport, 50},
		{kernel.EventConfig{CycleTime: 30, FirstActivation: 20, Priority: 5}, s.rogue, PIDRogue, 20},
		{kernel.EventConfig{CycleTime: 40, Priority: 13}, s.supervise, PIDSupervisor, 10},
	} {
		id, err := k.CreateEvent(d.cfg)
		must(err)
		must(k.RegisterTask(id, d.fn, d.pid, d.deadline))
	}

	must(k.Start())
	s.cons.WriteLine([]byte("citadel up"))

	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for range ch {
					k.Tick()
				}
			}()
		}
	}
	return s
}

func ledSyscall(led hal.LED) kernel.SyscallFn {
	return func(c *kernel.CallContext, args []uint32) uint32 {
		if led == nil || len(args) < 1 {
			return 0
		}
		if args[0] != 0 {
			led.High()
		} else {
			led.Low()
		}
		return 0
	}
}

// buttonSyscall samples the panel button. Debouncing happens in the HAL
// backend; the read itself is a bounded peek, short enough for the
// exclusive section.
func buttonSyscall(btn hal.Button) kernel.SyscallFn {
	return func(c *kernel.CallContext, args []uint32) uint32 {
		if btn == nil || !btn.Pressed() {
			return 0
		}
		return 1
	}
}

// publishWord stores one word at a process-space address. Runs in the
// exclusive section; the address check aborts the caller on a bad range.
func publishWord(c *kernel.CallContext, args []uint32) uint32 {
	if len(args) < 2 {
		return 0
	}
	c.WriteWord(args[0], args[1])
	return 0
}

func failureSyscall(k *kernel.Kernel) kernel.SyscallFn {
	return func(c *kernel.CallContext, args []uint32) uint32 {
		if len(args) < 1 {
			return 0
		}
		return k.TotalFailureCount(kernel.PID(args[0]))
	}
}

// must is configuration-phase only. A bad static system description is a
// build defect, not a runtime condition.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
