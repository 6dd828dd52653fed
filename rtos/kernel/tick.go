package kernel

// Tick advances kernel time by one tick. The clock driver calls it exactly
// once per configured period; tests call it directly.
//
// One tick does three things: run the deadline watchdog over the nested
// activations, trigger every cyclic event whose due time has passed, and
// dispatch. A due time that could not be serviced is not caught up: the
// firing is lost (and counted if the event was still busy), never queued.
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.started {
		return
	}
	k.tick++

	for i := 0; i < k.nAct; i++ {
		a := &k.acts[i]
		if a.flagged {
			continue
		}
		if a.td.deadline == 0 || a.td.pid == KernelPID {
			continue
		}
		if k.tick-a.start > uint64(a.td.deadline) {
			// Abort lands at the task's next kernel entry, or is counted
			// on its late return.
			a.flagged = true
		}
	}

	for _, ev := range k.events {
		if ev.cycle == 0 || ev.priority == 0 {
			continue
		}
		if k.tick >= ev.due {
			k.triggerLocked(ev)
			ev.due += uint64(ev.cycle)
		}
	}

	k.kick()
}
