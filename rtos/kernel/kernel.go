// Package kernel implements an event-triggered, priority-preemptive
// real-time kernel core for a single-core target.
//
// The kernel schedules a fixed, statically configured set of events, tasks
// and processes. There is no dynamic creation after Start, no heap use on
// the scheduling path, and no queuing of event activations. Mutual
// exclusion between tasks is built with the priority ceiling protocol
// rather than a global lock, and a defective task is contained: its abort
// is counted against its owning process and scheduling continues.
package kernel

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// Priority is a scheduling priority. 0 is reserved for the idle guard; real
// events use 1..MaxPriority.
type Priority uint8

// PID identifies a process. Process 0 is the kernel process; privilege
// rises with the PID, so the highest configured PID is the supervisor.
type PID uint8

// EventID identifies an event in creation order.
type EventID uint8

const (
	// MaxPriority is the highest usable event priority.
	MaxPriority Priority = 15

	// MaxLockablePriority is the highest priority task code may raise the
	// current priority to. Events above it cannot be shut out by the
	// priority ceiling protocol, so they are reserved for the supervisor
	// process (enforced at Start).
	MaxLockablePriority Priority = 12

	// KernelPID is the process the kernel's own tasks run in. It is never
	// deadline monitored and can never be suspended.
	KernelPID PID = 0

	// MaxEvents bounds the event table, including the idle guard.
	MaxEvents = 32

	// MaxProcesses bounds the process table.
	MaxProcesses = 8

	// MaxTasksPerEvent bounds the tasks associated with one event.
	MaxTasksPerEvent = 8

	// MaxDeadline is the largest per-task deadline budget, in ticks.
	MaxDeadline = 1 << 24

	// maxNested bounds the activation stack: dispatch recursion cannot go
	// deeper than one activation per priority level.
	maxNested = int(MaxPriority) + 1
)

// Kernel holds all mutable kernel state: the event table, the process
// table, the system-call table and the current priority. All mutation is
// confined to this package; the short exclusive section is k.mu.
type Kernel struct {
	mu sync.Mutex

	started bool

	// Configuration phase only: events ordered by (priority desc, creation
	// seq asc). Frozen into the events slice at Start.
	order *redblacktree.Tree
	byID  [MaxEvents]*Event
	nEv   int

	// Frozen event table, sorted by non-increasing priority and terminated
	// by the zero-priority guard.
	events []*Event

	procs [MaxProcesses]Process
	nProc int

	syscalls [MaxSyscalls]syscallDesc

	// curPrio is the single, system-wide current priority: the level at
	// and below which tasks are excluded from running.
	curPrio Priority

	// busy marks the core as owned by a dispatch in progress; pending
	// records a trigger that arrived meanwhile and must be dispatched when
	// the core is released (interrupt-return semantics).
	busy    bool
	pending bool

	tick uint64

	acts [maxNested]activation
	nAct int
}

type orderKey struct {
	prio Priority
	seq  int
}

func orderCmp(a, b interface{}) int {
	ka, kb := a.(orderKey), b.(orderKey)
	switch {
	case ka.prio > kb.prio:
		return -1
	case ka.prio < kb.prio:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// New creates a kernel in its configuration phase. The kernel process is
// preconfigured with no memory and no stack.
func New() *Kernel {
	k := &Kernel{
		order: redblacktree.NewWith(orderCmp),
		nProc: 1,
	}
	k.procs[KernelPID].configured = true
	k.registerCoreCalls()
	return k
}

// Start validates the configuration, freezes the event table and releases
// the configured processes. After a successful Start the configuration API
// is rejected with ErrAlreadyStarted.
func (k *Kernel) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}

	supervisor := k.supervisorPID()

	it := k.order.Iterator()
	for it.Next() {
		ev := it.Value().(*Event)
		if len(ev.tasks) == 0 {
			return ErrEventWithoutTask
		}
		for i := range ev.tasks {
			td := &ev.tasks[i]
			if ev.priority > MaxLockablePriority && td.pid != supervisor {
				return ErrPrivilege
			}
		}
	}

	for pid := 1; pid < k.nProc; pid++ {
		p := &k.procs[pid]
		if !p.configured {
			continue
		}
		for t := PID(0); t < PID(k.nProc); t++ {
			if p.maySuspend(t) && t == supervisor {
				return ErrSuspendTarget
			}
		}
	}

	k.freezeEvents()
	k.releaseProcesses()
	k.started = true

	// Events due at time zero fire on the first tick.
	return nil
}

// supervisorPID returns the highest configured process ID.
func (k *Kernel) supervisorPID() PID {
	s := KernelPID
	for pid := 0; pid < k.nProc; pid++ {
		if k.procs[pid].configured {
			s = PID(pid)
		}
	}
	return s
}

// Now returns the kernel time in ticks.
func (k *Kernel) Now() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// CurrentPriority returns the current priority level.
func (k *Kernel) CurrentPriority() Priority {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.curPrio
}

// ActivationLoss returns the saturating count of lost activations of an
// event.
func (k *Kernel) ActivationLoss(id EventID) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if int(id) >= k.nEv {
		return 0
	}
	return k.byID[id].loss
}
