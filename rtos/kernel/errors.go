package kernel

// ConfigErr is a configuration-phase error code.
//
// Configuration errors are structural: the caller (system start-up code) is
// expected to treat any of them as fatal. None of them can occur after a
// successful Start.
type ConfigErr uint8

const (
	ErrAlreadyStarted ConfigErr = iota + 1
	ErrNotStarted
	ErrBadPriority
	ErrBadTiming
	ErrTooManyEvents
	ErrTooManyTasks
	ErrNoSuchEvent
	ErrBadProcess
	ErrBadDeadline
	ErrPrivilege
	ErrEventWithoutTask
	ErrBadStack
	ErrBadRegion
	ErrBadSyscall
	ErrSuspendTarget
)

func (e ConfigErr) Error() string {
	switch e {
	case ErrAlreadyStarted:
		return "kernel already started"
	case ErrNotStarted:
		return "kernel not started"
	case ErrBadPriority:
		return "event priority out of range"
	case ErrBadTiming:
		return "bad event timing"
	case ErrTooManyEvents:
		return "too many events"
	case ErrTooManyTasks:
		return "too many tasks"
	case ErrNoSuchEvent:
		return "no such event"
	case ErrBadProcess:
		return "task in invalid process"
	case ErrBadDeadline:
		return "deadline exceeds supported maximum"
	case ErrPrivilege:
		return "high-priority task in low-privilege process"
	case ErrEventWithoutTask:
		return "event without task"
	case ErrBadStack:
		return "bad process stack configuration"
	case ErrBadRegion:
		return "bad process memory region"
	case ErrBadSyscall:
		return "bad system-call registration"
	case ErrSuspendTarget:
		return "most-privileged process cannot be a suspend target"
	default:
		return "unknown configuration error"
	}
}

// TriggerResult describes the outcome of an event trigger attempt.
type TriggerResult uint8

const (
	TriggerOK TriggerResult = iota
	// TriggerLost means the event was still triggered or in progress; the
	// activation is discarded and counted, never queued.
	TriggerLost
	TriggerDenied
	TriggerNoSuchEvent
	TriggerNotStarted
)

func (r TriggerResult) String() string {
	switch r {
	case TriggerOK:
		return "ok"
	case TriggerLost:
		return "activation lost"
	case TriggerDenied:
		return "insufficient process privilege"
	case TriggerNoSuchEvent:
		return "no such event"
	case TriggerNotStarted:
		return "kernel not started"
	default:
		return "unknown"
	}
}

// AbortCause classifies a task abort. Each cause has its own per-process
// failure counter.
type AbortCause uint8

const (
	CauseMemoryProtection AbortCause = iota
	CauseDeadline
	CauseSystemCall
	CauseAlignment
	CauseIllegalOperation
	CauseUserAbort

	numAbortCauses
)

func (c AbortCause) String() string {
	switch c {
	case CauseMemoryProtection:
		return "memory protection"
	case CauseDeadline:
		return "deadline overrun"
	case CauseSystemCall:
		return "illegal system call"
	case CauseAlignment:
		return "alignment fault"
	case CauseIllegalOperation:
		return "illegal operation"
	case CauseUserAbort:
		return "user abort"
	default:
		return "unknown"
	}
}

// trap aborts the current task activation when it reaches the fault handler
// in the task runner. Raised only while task code is on the call stack.
type trap struct {
	cause AbortCause
}
