package kernel

// SuspendByPriority raises the current priority to excl and returns the
// previous value, shutting out every task and event at or below excl while
// leaving higher levels fully served. OS-context surface; task code uses
// the system-call-gated pair on TaskContext.
//
// A value not above the present priority is a no-op returning the present
// value, which makes nested critical sections composable.
func (k *Kernel) SuspendByPriority(excl Priority) Priority {
	k.mu.Lock()
	defer k.mu.Unlock()

	prev := k.curPrio
	if excl > k.curPrio {
		k.curPrio = excl
	}
	return prev
}

// ResumeByPriority lowers the current priority back to the value returned
// by the matching SuspendByPriority and dispatches whatever became due at
// the vacated levels while the priority was raised.
func (k *Kernel) ResumeByPriority(to Priority) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if to >= k.curPrio {
		return
	}
	k.curPrio = to
	if k.busy {
		// The core owner re-runs the scan on its way out.
		k.pending = true
		return
	}
	k.kick()
}
