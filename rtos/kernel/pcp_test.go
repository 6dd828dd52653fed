package kernel

import "testing"

func TestCeilingBlocksLowerEventUntilResume(t *testing.T) {
	k := newTestKernel(t)
	worker, _ := k.CreateEvent(EventConfig{Priority: 3})
	blocked, _ := k.CreateEvent(EventConfig{Priority: 5})

	var order []string
	if err := k.RegisterTask(blocked, func(tc *TaskContext) int32 {
		order = append(order, "blocked")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(worker, func(tc *TaskContext) int32 {
		prev := tc.SuspendByPriority(6)
		if prev != 3 {
			t.Errorf("suspend: expected previous priority 3, got %d", prev)
		}
		// The higher-priority event is due, but the raised ceiling keeps
		// it out of the critical section.
		if res := tc.TriggerEvent(blocked); res != TriggerOK {
			t.Errorf("trigger: %s", res)
		}
		order = append(order, "critical")
		tc.ResumeByPriority(prev)
		order = append(order, "resumed")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(worker)

	want := []string{"critical", "blocked", "resumed"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestNestedCeilingsCompose(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 2})

	if err := k.RegisterTask(ev, func(tc *TaskContext) int32 {
		outer := tc.RaiseCeiling(5)
		if outer.Previous() != 2 {
			t.Errorf("outer: expected previous 2, got %d", outer.Previous())
		}

		inner := tc.RaiseCeiling(9)
		if inner.Previous() != 5 {
			t.Errorf("inner: expected previous 5, got %d", inner.Previous())
		}

		// Raising to a lower value than currently held is a no-op.
		flat := tc.RaiseCeiling(4)
		if flat.Previous() != 9 {
			t.Errorf("flat: expected previous 9, got %d", flat.Previous())
		}
		flat.Release()

		inner.Release()
		outer.Release()
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(ev)
	if p := k.CurrentPriority(); p != 0 {
		t.Fatalf("expected idle priority after the task, got %d", p)
	}
}

func TestLeakedCeilingCorrectedOnTermination(t *testing.T) {
	k := newTestKernel(t)
	leaky, _ := k.CreateEvent(EventConfig{Priority: 2})
	after, _ := k.CreateEvent(EventConfig{Priority: 4})

	afterRuns := 0
	if err := k.RegisterTask(after, func(tc *TaskContext) int32 {
		afterRuns++
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(leaky, func(tc *TaskContext) int32 {
		tc.SuspendByPriority(MaxLockablePriority)
		return 0 // terminates without the matching resume
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(leaky)
	if p := k.CurrentPriority(); p != 0 {
		t.Fatalf("leaked ceiling not corrected: current priority %d", p)
	}

	k.TriggerEvent(after)
	if afterRuns != 1 {
		t.Fatalf("expected the next task to dispatch normally, got %d runs", afterRuns)
	}
}

func TestSuspendBeyondLockableCeilingAborts(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 2})

	if err := k.RegisterTask(ev, func(tc *TaskContext) int32 {
		tc.SuspendByPriority(MaxLockablePriority + 1)
		t.Error("unreachable: suspend beyond the lockable ceiling must abort")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(ev)
	if n := k.FailureCount(1, CauseSystemCall); n != 1 {
		t.Fatalf("expected 1 illegal-system-call failure, got %d", n)
	}
}

func TestResumeBelowOwnPriorityAborts(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 4})

	if err := k.RegisterTask(ev, func(tc *TaskContext) int32 {
		tc.ResumeByPriority(1) // below the task's own base
		t.Error("unreachable: resume below the entry priority must abort")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(ev)
	if n := k.FailureCount(1, CauseSystemCall); n != 1 {
		t.Fatalf("expected 1 illegal-system-call failure, got %d", n)
	}
	if p := k.CurrentPriority(); p != 0 {
		t.Fatalf("expected idle priority after the abort, got %d", p)
	}
}

func TestOSContextCeilingPair(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 3, CycleTime: 2})

	runs := 0
	if err := k.RegisterTask(ev, func(tc *TaskContext) int32 {
		runs++
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	prev := k.SuspendByPriority(10)
	if prev != 0 {
		t.Fatalf("expected previous priority 0, got %d", prev)
	}

	// Ticks keep arriving while the priority is raised; the event fires
	// but stays shut out.
	k.Tick()
	k.Tick()
	k.Tick()
	if runs != 0 {
		t.Fatalf("event dispatched %d times under a raised ceiling", runs)
	}

	// Resume runs the pent-up dispatch.
	k.ResumeByPriority(prev)
	if runs != 1 {
		t.Fatalf("expected 1 run after resume, got %d", runs)
	}
}
