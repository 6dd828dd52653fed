package kernel

import "encoding/binary"

// Class is the conformance class of a system call. It decides how much of
// the kernel's concurrency state the call may disturb and how the
// dispatcher transfers control.
type Class uint8

const (
	// ClassBasic is a direct call with minimum overhead and a single
	// register-sized result. For trivial, always-safe operations.
	ClassBasic Class = iota

	// ClassSimple runs the call inside the kernel's exclusive section,
	// suspending everything else for the call's duration. Only for short,
	// provably bounded services. The handler runs with the section held
	// and must not enter the kernel again.
	ClassSimple

	// ClassFull runs the call in OS context and re-enters the scheduler on
	// return, so events triggered during the call are dispatched. Required
	// for services of nontrivial duration.
	ClassFull
)

func (c Class) String() string {
	switch c {
	case ClassBasic:
		return "basic"
	case ClassSimple:
		return "simple"
	case ClassFull:
		return "full"
	default:
		return "unknown"
	}
}

// MaxSyscalls is the fixed size of the system-call table.
const MaxSyscalls = 32

// Core system-call numbers. Driver services register at FirstDriverCall
// and above.
const (
	SysTriggerEvent uint32 = iota
	SysSuspendByPriority
	SysResumeByPriority
	SysSuspendProcess
	SysStackReserve
	SysNow

	FirstDriverCall uint32 = 8
)

// SyscallFn implements one kernel or driver service. Arguments and result
// are register-sized; pointer arguments arrive as process-space addresses
// and must be resolved through the CallContext.
type SyscallFn func(c *CallContext, args []uint32) uint32

type syscallDesc struct {
	fn    SyscallFn
	class Class
}

// RegisterSyscall installs a service in the system-call table. Legal only
// during the configuration phase; the table is immutable afterwards.
func (k *Kernel) RegisterSyscall(idx uint32, fn SyscallFn, class Class) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}
	if idx >= MaxSyscalls || fn == nil || class > ClassFull {
		return ErrBadSyscall
	}
	if k.syscalls[idx].fn != nil {
		return ErrBadSyscall
	}
	k.syscalls[idx] = syscallDesc{fn: fn, class: class}
	return nil
}

// Syscall crosses from task code into the kernel. The index is validated
// against the table bound; an out-of-range or unassigned index aborts the
// calling task with a counted error, it never executes garbage.
func (tc *TaskContext) Syscall(idx uint32, args ...uint32) uint32 {
	k := tc.k

	k.mu.Lock()
	tc.checkAbort()
	if idx >= MaxSyscalls || k.syscalls[idx].fn == nil {
		k.mu.Unlock()
		panic(trap{cause: CauseSystemCall})
	}
	d := k.syscalls[idx]
	cc := CallContext{k: k, pid: tc.a.td.pid, a: tc.a}

	switch d.class {
	case ClassSimple:
		defer k.mu.Unlock()
		return d.fn(&cc, args)

	case ClassBasic:
		k.mu.Unlock()
		return d.fn(&cc, args)

	default: // ClassFull
		k.mu.Unlock()
		v := d.fn(&cc, args)
		k.mu.Lock()
		if k.pending {
			k.pending = false
			k.dispatch()
		}
		k.mu.Unlock()
		return v
	}
}

// CallContext is the kernel-side view of one system call: the calling
// process and the choke point converting untrusted task input into
// validated kernel input.
type CallContext struct {
	k   *Kernel
	pid PID
	a   *activation
}

// PID returns the calling process.
func (c *CallContext) PID() PID {
	return c.pid
}

// fail aborts the calling task.
func (c *CallContext) fail(cause AbortCause) {
	panic(trap{cause: cause})
}

// Bytes resolves a process-space pointer/length pair against the calling
// process's memory regions. A range not fully inside a readable (or, with
// write set, writable) region aborts the caller with a memory-protection
// error.
func (c *CallContext) Bytes(addr, n uint32, write bool) []byte {
	b, ok := c.k.procs[c.pid].resolve(addr, n, write)
	if !ok {
		c.fail(CauseMemoryProtection)
	}
	return b
}

// ReadWord reads one aligned word from the calling process's memory.
// Misalignment aborts the caller with an alignment fault.
func (c *CallContext) ReadWord(addr uint32) uint32 {
	if addr%4 != 0 {
		c.fail(CauseAlignment)
	}
	return binary.LittleEndian.Uint32(c.Bytes(addr, 4, false))
}

// WriteWord writes one aligned word into the calling process's memory.
func (c *CallContext) WriteWord(addr, v uint32) {
	if addr%4 != 0 {
		c.fail(CauseAlignment)
	}
	binary.LittleEndian.PutUint32(c.Bytes(addr, 4, true), v)
}

// registerCoreCalls fills the kernel's own entries of the system-call
// table. Driver services come in through RegisterSyscall during the
// configuration phase.
func (k *Kernel) registerCoreCalls() {
	k.syscalls[SysTriggerEvent] = syscallDesc{fn: sysTriggerEvent, class: ClassFull}
	k.syscalls[SysSuspendByPriority] = syscallDesc{fn: sysSuspendByPriority, class: ClassBasic}
	k.syscalls[SysResumeByPriority] = syscallDesc{fn: sysResumeByPriority, class: ClassBasic}
	k.syscalls[SysSuspendProcess] = syscallDesc{fn: sysSuspendProcess, class: ClassFull}
	k.syscalls[SysStackReserve] = syscallDesc{fn: sysStackReserve, class: ClassSimple}
	k.syscalls[SysNow] = syscallDesc{fn: sysNow, class: ClassSimple}
}

func sysTriggerEvent(c *CallContext, args []uint32) uint32 {
	if len(args) < 1 || args[0] >= uint32(c.k.nEv) {
		c.fail(CauseSystemCall)
	}

	k := c.k
	k.mu.Lock()
	ev := k.byID[args[0]]
	if c.pid < ev.minPID {
		k.mu.Unlock()
		return uint32(TriggerDenied)
	}
	res := k.triggerLocked(ev)
	if res == TriggerOK && ev.priority > k.curPrio {
		// The caller owns the core; the higher event preempts it here.
		k.dispatch()
	}
	k.mu.Unlock()
	return uint32(res)
}

func sysSuspendByPriority(c *CallContext, args []uint32) uint32 {
	if len(args) < 1 || args[0] > uint32(MaxLockablePriority) {
		c.fail(CauseSystemCall)
	}

	k := c.k
	k.mu.Lock()
	prev := k.curPrio
	if Priority(args[0]) > k.curPrio {
		k.curPrio = Priority(args[0])
	}
	k.mu.Unlock()
	return uint32(prev)
}

func sysResumeByPriority(c *CallContext, args []uint32) uint32 {
	if len(args) < 1 || args[0] > uint32(MaxPriority) {
		c.fail(CauseSystemCall)
	}
	// A task may only lower the priority back to a value it raised it
	// from; below its own base would unblock its own priority level.
	if Priority(args[0]) < c.a.entryPrio {
		c.fail(CauseSystemCall)
	}

	k := c.k
	k.mu.Lock()
	if Priority(args[0]) < k.curPrio {
		k.curPrio = Priority(args[0])
		// An event can have been triggered while the priority was raised
		// and is eligible from the vacated level on.
		k.dispatch()
	}
	k.mu.Unlock()
	return 0
}

func sysSuspendProcess(c *CallContext, args []uint32) uint32 {
	k := c.k
	if len(args) < 1 || args[0] >= uint32(k.nProc) {
		c.fail(CauseSystemCall)
	}

	target := PID(args[0])
	k.mu.Lock()
	if !k.procs[c.pid].maySuspend(target) {
		k.mu.Unlock()
		c.fail(CauseSystemCall)
	}
	k.suspendLocked(target)
	k.mu.Unlock()
	return 0
}

func sysStackReserve(c *CallContext, args []uint32) uint32 {
	if len(args) < 1 || args[0] >= uint32(c.k.nProc) {
		c.fail(CauseSystemCall)
	}
	p := &c.k.procs[args[0]]
	if !p.configured {
		c.fail(CauseSystemCall)
	}
	return stackReserve(p.stack)
}

func sysNow(c *CallContext, args []uint32) uint32 {
	return uint32(c.k.tick)
}
