package kernel

// ProcState is the run state of a process. The transition to ProcStopped is
// one-way: a stopped process is never released again (fail-static).
type ProcState uint8

const (
	ProcStopped ProcState = iota
	ProcRunning
)

func (s ProcState) String() string {
	switch s {
	case ProcStopped:
		return "stopped"
	case ProcRunning:
		return "running"
	default:
		return "unknown"
	}
}

// stackFill is the pattern the stack is pre-filled with for the reserve
// measurement.
const stackFill byte = 0xa5

// ProcessConfig describes a process: its stack and the memory ranges the
// system-call dispatcher accepts pointers into. The region set is supplied
// by the memory-protection configuration; the kernel only consumes it.
type ProcessConfig struct {
	// StackBytes is the fixed stack size; rounded up to a whole number of
	// words. A process with no stack is rejected at configuration.
	StackBytes int

	// StackBase is the address the stack region is mapped at in the
	// process's address space.
	StackBase uint32

	// Regions are additional readable/writable ranges.
	Regions []MemRegion
}

// Process is a privilege and memory domain. Fields other than state and the
// failure counters are fixed after Start.
type Process struct {
	configured bool
	state      ProcState

	stack   []byte
	regions []MemRegion

	// suspendMask has bit t set when this process has been granted
	// permission to suspend process t.
	suspendMask uint8

	failures [numAbortCauses]uint32
	total    uint32
}

func (p *Process) maySuspend(target PID) bool {
	return p.suspendMask&(1<<target) != 0
}

// ConfigureProcess declares a user process. Legal only during the
// configuration phase; process 0 is the kernel process and is configured
// implicitly.
func (k *Kernel) ConfigureProcess(pid PID, cfg ProcessConfig) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}
	if pid == KernelPID || int(pid) >= MaxProcesses {
		return ErrBadProcess
	}
	if cfg.StackBytes <= 0 {
		return ErrBadStack
	}
	for _, r := range cfg.Regions {
		if len(r.Data) == 0 {
			return ErrBadRegion
		}
	}

	p := &k.procs[pid]
	p.configured = true
	p.stack = make([]byte, (cfg.StackBytes+3)&^3)
	p.regions = append([]MemRegion(nil), cfg.Regions...)
	p.regions = append(p.regions, MemRegion{
		Base:     cfg.StackBase,
		Data:     p.stack,
		Writable: true,
	})
	if int(pid)+1 > k.nProc {
		k.nProc = int(pid) + 1
	}
	return nil
}

// GrantSuspend permits process by to suspend process target. The grant is
// static; Start rejects a grant whose target is the supervisor process.
func (k *Kernel) GrantSuspend(by, target PID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}
	if int(by) >= k.nProc || !k.procs[by].configured || by == KernelPID {
		return ErrBadProcess
	}
	if int(target) >= k.nProc || !k.procs[target].configured || target == KernelPID {
		return ErrBadProcess
	}
	k.procs[by].suspendMask |= 1 << target
	return nil
}

// releaseProcesses fills the stacks with the reserve pattern and releases
// every configured process. Called once from Start with k.mu held.
func (k *Kernel) releaseProcesses() {
	for pid := 0; pid < k.nProc; pid++ {
		p := &k.procs[pid]
		if !p.configured {
			continue
		}
		for i := range p.stack {
			p.stack[i] = stackFill
		}
		p.state = ProcRunning
	}
}

// suspendLocked stops a process. Future task launches of the process are
// refused; a task already mid-execution finishes its activation, bounded by
// its own deadline budget. Called with k.mu held.
func (k *Kernel) suspendLocked(target PID) {
	k.procs[target].state = ProcStopped
}

func (k *Kernel) countFailureLocked(pid PID, cause AbortCause) {
	p := &k.procs[pid]
	p.failures[cause]++
	p.total++
}

// ProcessState returns the run state of a process.
func (k *Kernel) ProcessState(pid PID) ProcState {
	k.mu.Lock()
	defer k.mu.Unlock()
	if int(pid) >= k.nProc {
		return ProcStopped
	}
	return k.procs[pid].state
}

// FailureCount returns the per-cause failure counter of a process.
func (k *Kernel) FailureCount(pid PID, cause AbortCause) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if int(pid) >= k.nProc || cause >= numAbortCauses {
		return 0
	}
	return k.procs[pid].failures[cause]
}

// TotalFailureCount returns the aggregate failure counter of a process.
func (k *Kernel) TotalFailureCount(pid PID) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if int(pid) >= k.nProc {
		return 0
	}
	return k.procs[pid].total
}

// StackReserve measures the unused part of a process stack in bytes by
// counting untouched pattern words from the deep end. The result is
// approximate: a value pushed by the process can coincide with the pattern.
func (k *Kernel) StackReserve(pid PID) (uint32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.started {
		return 0, ErrNotStarted
	}
	if int(pid) >= k.nProc || !k.procs[pid].configured {
		return 0, ErrBadProcess
	}
	return stackReserve(k.procs[pid].stack), nil
}

func stackReserve(stack []byte) uint32 {
	n := uint32(0)
	for i := 0; i+4 <= len(stack); i += 4 {
		if stack[i] != stackFill || stack[i+1] != stackFill ||
			stack[i+2] != stackFill || stack[i+3] != stackFill {
			break
		}
		n += 4
	}
	return n
}
