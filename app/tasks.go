package app

import (
	"strconv"

	"citadel/rtos/kernel"
)

// blink toggles the panel LED and counts the toggle in both redundant
// counters. The ceiling keeps the pair consistent against the report
// task.
func (s *system) blink(tc *kernel.TaskContext) int32 {
	s.ledOn = !s.ledOn
	v := uint32(0)
	if s.ledOn {
		v = 1
	}
	tc.Syscall(SysLEDSet, v)

	g := tc.RaiseCeiling(counterCeiling)
	s.blinks++
	s.blinksShadow++
	g.Release()
	return 0
}

// report prints periodic status over console and serial and publishes the
// blink count into its shared page. A divergence of the redundant
// counters aborts the activation; the failure shows up in the process
// counters instead of propagating bad data.
func (s *system) report(tc *kernel.TaskContext) int32 {
	g := tc.RaiseCeiling(counterCeiling)
	a, b := s.blinks, s.blinksShadow
	g.Release()
	if a != b {
		return -1
	}
	tc.Syscall(SysPublishWord, reportPageBase, a)

	line := s.reportPage[16:16:len(s.reportPage)]
	line = append(line, "report tick="...)
	line = strconv.AppendUint(line, uint64(tc.Now()), 10)
	line = append(line, " blinks="...)
	line = strconv.AppendUint(line, uint64(a), 10)
	line = append(line, " stack="...)
	line = strconv.AppendUint(line, uint64(tc.StackReserve(PIDReport)), 10)
	line = append(line, " btn="...)
	line = strconv.AppendUint(line, uint64(tc.Syscall(SysButtonRead)), 10)

	addr := uint32(reportPageBase + 16)
	tc.Syscall(SysConsoleWrite, addr, uint32(len(line)))
	tc.Syscall(SysSerialWrite, addr, uint32(len(line)))
	return 0
}

// rogue commits a different fault on every activation. Every mode ends in
// an abort; the interesting part is that nothing outside process 2
// notices beyond a counter.
func (s *system) rogue(tc *kernel.TaskContext) int32 {
	mode := s.rogueMode
	s.rogueMode++

	switch mode % 6 {
	case 0:
		// Pointer far outside the process's regions.
		tc.Syscall(SysConsoleWrite, 0xdead0000, 16)
	case 1:
		// Unassigned system-call slot.
		tc.Syscall(kernel.MaxSyscalls-1, 0)
	case 2:
		return -1
	case 3:
		// Plain code bug.
		var probe [4]byte
		return int32(probe[mode*8])
	case 4:
		// Store into the read-only page.
		tc.Syscall(SysPublishWord, roguePageBase, 1)
	default:
		// Misaligned word address.
		tc.Syscall(SysPublishWord, rogueScratchBase+2, 1)
	}
	return 0
}

// supervise watches the rogue's failure counters and pulls the process
// once it crosses the limit. Runs above the lockable ceiling, so no user
// critical section can shut it out.
func (s *system) supervise(tc *kernel.TaskContext) int32 {
	faults := tc.Syscall(SysProcessFailures, uint32(PIDRogue))
	if s.rogueStopped || faults < rogueFaultLimit {
		return 0
	}
	tc.SuspendProcess(PIDRogue)
	s.rogueStopped = true

	line := s.superPage[:0:len(s.superPage)]
	line = append(line, "rogue process stopped after "...)
	line = strconv.AppendUint(line, uint64(faults), 10)
	line = append(line, " faults"...)
	tc.Syscall(SysConsoleWrite, superPageBase, uint32(len(line)))
	return 0
}
