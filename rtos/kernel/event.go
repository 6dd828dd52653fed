package kernel

import "math"

// EventState is the per-event scheduling state.
type EventState uint8

const (
	EventIdle EventState = iota
	EventTriggered
	EventInProgress
)

// EventConfig describes a trigger condition.
type EventConfig struct {
	// CycleTime is the period in ticks; 0 makes the event purely
	// software-triggered.
	CycleTime uint32

	// FirstActivation is the absolute time of the first cyclic firing.
	// Must be 0 for software-triggered events.
	FirstActivation uint32

	// Priority of every task associated with the event, 1..MaxPriority.
	Priority Priority

	// MinPIDToTrigger is the least privileged process allowed to trigger
	// the event from task code. 0 admits every process.
	MinPIDToTrigger PID
}

// Event is one trigger condition and its associated tasks. All fields are
// fixed after Start except state, due and loss.
type Event struct {
	id       EventID
	priority Priority
	cycle    uint32
	minPID   PID

	state EventState
	due   uint64
	loss  uint32

	tasks []taskDesc

	// rescan is the table index dispatch resumes scanning from after this
	// event completes: the first event of the same priority level. Several
	// events may share one priority and a peer can have been triggered
	// while this one ran.
	rescan int
}

type taskDesc struct {
	fn       TaskFn
	pid      PID
	deadline uint32
}

// CreateEvent registers a trigger condition. Legal only during the
// configuration phase.
func (k *Kernel) CreateEvent(cfg EventConfig) (EventID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return 0, ErrAlreadyStarted
	}
	if cfg.Priority < 1 || cfg.Priority > MaxPriority {
		return 0, ErrBadPriority
	}
	if cfg.CycleTime == 0 && cfg.FirstActivation != 0 {
		return 0, ErrBadTiming
	}
	// One slot is reserved for the idle guard.
	if k.nEv >= MaxEvents-1 {
		return 0, ErrTooManyEvents
	}

	ev := &Event{
		id:       EventID(k.nEv),
		priority: cfg.Priority,
		cycle:    cfg.CycleTime,
		due:      uint64(cfg.FirstActivation),
		minPID:   cfg.MinPIDToTrigger,
	}
	k.byID[ev.id] = ev
	k.order.Put(orderKey{prio: ev.priority, seq: k.nEv}, ev)
	k.nEv++
	return ev.id, nil
}

// RegisterTask associates a task with an event. Tasks run in registration
// order when the event is dispatched. Legal only during the configuration
// phase.
func (k *Kernel) RegisterTask(id EventID, fn TaskFn, pid PID, deadline uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}
	if int(id) >= k.nEv {
		return ErrNoSuchEvent
	}
	if int(pid) >= k.nProc || !k.procs[pid].configured {
		return ErrBadProcess
	}
	if fn == nil {
		return ErrBadProcess
	}
	if deadline > MaxDeadline {
		return ErrBadDeadline
	}

	ev := k.byID[id]
	if len(ev.tasks) >= MaxTasksPerEvent {
		return ErrTooManyTasks
	}
	ev.tasks = append(ev.tasks, taskDesc{fn: fn, pid: pid, deadline: deadline})
	return nil
}

// freezeEvents converts the configuration-phase ordering into the fixed
// dispatch table: non-increasing priority, creation order within one level,
// a zero-priority guard at the end, and precomputed rescan links.
// Called with k.mu held.
func (k *Kernel) freezeEvents() {
	k.events = make([]*Event, 0, k.nEv+1)
	it := k.order.Iterator()
	for it.Next() {
		k.events = append(k.events, it.Value().(*Event))
	}
	k.events = append(k.events, &Event{priority: 0, rescan: k.nEv})

	groupStart := 0
	for i, ev := range k.events[:k.nEv] {
		if ev.priority != k.events[groupStart].priority {
			groupStart = i
		}
		ev.rescan = groupStart
	}
}

// triggerLocked flips an idle event to triggered. A non-idle event loses
// the activation: the loss counter saturates and nothing is queued.
// Called with k.mu held.
func (k *Kernel) triggerLocked(ev *Event) TriggerResult {
	if ev.state != EventIdle {
		if ev.loss < math.MaxUint32 {
			ev.loss++
		}
		return TriggerLost
	}
	ev.state = EventTriggered
	return TriggerOK
}

// TriggerEvent triggers an event from OS or interrupt context. If a task
// currently owns the core the dispatch is deferred until that task next
// releases it.
func (k *Kernel) TriggerEvent(id EventID) TriggerResult {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.started {
		return TriggerNotStarted
	}
	if int(id) >= k.nEv {
		return TriggerNoSuchEvent
	}
	res := k.triggerLocked(k.byID[id])
	if res == TriggerOK {
		k.kick()
	}
	return res
}
