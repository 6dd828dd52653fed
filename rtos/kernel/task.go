package kernel

// TaskFn is a task entry point. A task runs to completion once dispatched;
// it never blocks. A negative return value requests an abort of the
// activation, counted as a user abort against the owning process.
type TaskFn func(tc *TaskContext) int32

// activation is the per-launch execution record of a task. Records nest on
// a fixed stack when dispatch preempts a running task.
type activation struct {
	td        *taskDesc
	start     uint64
	entryPrio Priority

	// flagged is set by the deadline watchdog; the abort lands at the
	// task's next kernel entry.
	flagged bool
}

func (a *activation) overrun(now uint64) bool {
	if a.flagged {
		return true
	}
	return a.td.deadline > 0 && a.td.pid != KernelPID && now-a.start > uint64(a.td.deadline)
}

// TaskContext is the task-side kernel surface. All services behind it go
// through the system-call dispatcher; the context is valid for one
// activation only.
type TaskContext struct {
	k *Kernel
	a *activation
}

// PID returns the owning process of the running task.
func (tc *TaskContext) PID() PID {
	return tc.a.td.pid
}

// checkAbort delivers a pending deadline abort. Every kernel entry from
// task code is a safe preemption point. Called with k.mu held; the lock is
// released before the trap propagates.
func (tc *TaskContext) checkAbort() {
	if tc.a.flagged {
		tc.k.mu.Unlock()
		panic(trap{cause: CauseDeadline})
	}
}

// TriggerEvent triggers an event from task code. The event's MinPIDToTrigger
// gate applies; a higher-priority event preempts the caller immediately.
func (tc *TaskContext) TriggerEvent(id EventID) TriggerResult {
	return TriggerResult(tc.Syscall(SysTriggerEvent, uint32(id)))
}

// SuspendByPriority raises the current priority to excl and returns the
// previous value. Tasks at or below excl are shut out until the matching
// ResumeByPriority. Raising beyond MaxLockablePriority is an illegal
// system-call argument.
func (tc *TaskContext) SuspendByPriority(excl Priority) Priority {
	return Priority(tc.Syscall(SysSuspendByPriority, uint32(excl)))
}

// ResumeByPriority lowers the current priority back to the value returned
// by the matching SuspendByPriority. Events triggered while the priority
// was raised are dispatched before the call returns.
func (tc *TaskContext) ResumeByPriority(to Priority) {
	tc.Syscall(SysResumeByPriority, uint32(to))
}

// RaiseCeiling opens a scoped critical section against all tasks at or
// below excl. Release closes it; an unreleased ceiling is corrected by the
// kernel when the task terminates.
func (tc *TaskContext) RaiseCeiling(excl Priority) Ceiling {
	return Ceiling{tc: tc, prev: tc.SuspendByPriority(excl)}
}

// SuspendProcess permanently stops a process. The caller's process must
// hold a configured suspend grant for the target; otherwise the call is an
// illegal system call and aborts the caller.
func (tc *TaskContext) SuspendProcess(target PID) {
	tc.Syscall(SysSuspendProcess, uint32(target))
}

// StackReserve returns the approximate unused stack of a process in bytes.
func (tc *TaskContext) StackReserve(pid PID) uint32 {
	return tc.Syscall(SysStackReserve, uint32(pid))
}

// Now returns the kernel time in ticks, truncated to 32 bit.
func (tc *TaskContext) Now() uint32 {
	return tc.Syscall(SysNow)
}

// Ceiling is a held priority-ceiling critical section.
type Ceiling struct {
	tc       *TaskContext
	prev     Priority
	released bool
}

// Previous returns the priority the ceiling was raised from.
func (c *Ceiling) Previous() Priority {
	return c.prev
}

// Release lowers the priority back to the pre-raise value. Releasing twice
// is a no-op.
func (c *Ceiling) Release() {
	if c.released {
		return
	}
	c.released = true
	c.tc.ResumeByPriority(c.prev)
}
