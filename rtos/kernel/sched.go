package kernel

// kick claims the core and dispatches, or records a pending dispatch if a
// task currently owns the core. Entry point for triggers arriving from
// interrupt/OS context. Called with k.mu held.
func (k *Kernel) kick() {
	if k.busy {
		k.pending = true
		return
	}
	k.busy = true
	for {
		k.pending = false
		k.dispatch()
		if !k.pending {
			break
		}
	}
	k.busy = false
}

// dispatch scans the event table from the highest priority down to, but not
// below, the current priority and runs every triggered event found. The
// entry state is restored on exit, which makes dispatch re-entrant: a task
// triggering a higher-priority event recurses into it and is preempted
// until the higher event completes.
//
// Called with k.mu held; the lock is dropped while task bodies run.
func (k *Kernel) dispatch() {
	floor := k.curPrio
	i := 0
	for i < len(k.events) {
		ev := k.events[i]
		if ev.priority <= floor {
			return
		}
		if ev.state != EventTriggered {
			i++
			continue
		}

		ev.state = EventInProgress
		k.curPrio = ev.priority
		k.runEventTasks(ev)
		ev.state = EventIdle
		k.curPrio = floor

		// Revisit the whole priority level: a peer event can have been
		// triggered while this one ran.
		i = ev.rescan
	}
}

// runEventTasks runs the tasks of an in-progress event in registration
// order, each in its owning process context. Called with k.mu held; the
// lock is dropped around each task body.
func (k *Kernel) runEventTasks(ev *Event) {
	for t := range ev.tasks {
		td := &ev.tasks[t]
		if k.procs[td.pid].state != ProcRunning {
			// A task can only belong to a running process.
			continue
		}
		if k.nAct >= maxNested {
			continue
		}

		a := &k.acts[k.nAct]
		k.nAct++
		*a = activation{
			td:        td,
			start:     k.tick,
			entryPrio: k.curPrio,
		}

		k.mu.Unlock()
		tc := TaskContext{k: k, a: a}
		code, cause, aborted := invoke(&tc, td.fn)
		k.mu.Lock()

		k.nAct--

		// A task terminating with a raised priority ceiling leaked it;
		// correct the leak before anything else is dispatched.
		if k.curPrio != a.entryPrio {
			k.curPrio = a.entryPrio
		}

		switch {
		case aborted:
			k.countFailureLocked(td.pid, cause)
		case code < 0:
			k.countFailureLocked(td.pid, CauseUserAbort)
		case a.overrun(k.tick):
			// The task returned on its own, but after its budget.
			k.countFailureLocked(td.pid, CauseDeadline)
		}
	}
}

// invoke runs one task body and converts a trap or a runtime panic into a
// counted abort instead of a kernel crash.
func invoke(tc *TaskContext, fn TaskFn) (code int32, cause AbortCause, aborted bool) {
	defer func() {
		if r := recover(); r != nil {
			aborted = true
			if t, ok := r.(trap); ok {
				cause = t.cause
			} else {
				cause = CauseIllegalOperation
			}
		}
	}()
	return fn(tc), 0, false
}
