package kernel

import (
	"testing"
)

func TestCyclicEventsRunInPriorityOrder(t *testing.T) {
	k := newTestKernel(t)

	hi, err := k.CreateEvent(EventConfig{Priority: 5, CycleTime: 1})
	if err != nil {
		t.Fatal(err)
	}
	lo, err := k.CreateEvent(EventConfig{Priority: 3, CycleTime: 1})
	if err != nil {
		t.Fatal(err)
	}

	var order []EventID
	mark := func(id EventID) TaskFn {
		return func(tc *TaskContext) int32 {
			order = append(order, id)
			return 0
		}
	}
	if err := k.RegisterTask(hi, mark(hi), 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(lo, mark(lo), 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		k.Tick()
	}

	if len(order) != 20 {
		t.Fatalf("expected 20 task runs, got %d", len(order))
	}
	for i := 0; i < 20; i += 2 {
		if order[i] != hi || order[i+1] != lo {
			t.Fatalf("tick %d: expected order [hi lo], got [%d %d]", i/2, order[i], order[i+1])
		}
	}
	if n := k.ActivationLoss(hi); n != 0 {
		t.Fatalf("hi activation loss: expected 0, got %d", n)
	}
	if n := k.ActivationLoss(lo); n != 0 {
		t.Fatalf("lo activation loss: expected 0, got %d", n)
	}
}

func TestTriggerWhileBusyIsLostNotQueued(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 4})

	runs := 0
	var selfRes TriggerResult
	task := func(tc *TaskContext) int32 {
		runs++
		if runs == 1 {
			selfRes = tc.TriggerEvent(ev)
		}
		return 0
	}
	if err := k.RegisterTask(ev, task, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	if res := k.TriggerEvent(ev); res != TriggerOK {
		t.Fatalf("first trigger: %s", res)
	}
	if runs != 1 {
		t.Fatalf("expected 1 run after the lost retrigger, got %d", runs)
	}
	if selfRes != TriggerLost {
		t.Fatalf("retrigger of an in-progress event: expected TriggerLost, got %s", selfRes)
	}
	if n := k.ActivationLoss(ev); n != 1 {
		t.Fatalf("activation loss: expected exactly 1, got %d", n)
	}

	// The lost activation was discarded, not deferred: a fresh trigger runs
	// the task again.
	if res := k.TriggerEvent(ev); res != TriggerOK {
		t.Fatalf("second trigger: %s", res)
	}
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
}

func TestTaskPreemptedByHigherTriggeredEvent(t *testing.T) {
	k := newTestKernel(t)
	lo, _ := k.CreateEvent(EventConfig{Priority: 2})
	hi, _ := k.CreateEvent(EventConfig{Priority: 9})

	var order []string
	if err := k.RegisterTask(hi, func(tc *TaskContext) int32 {
		order = append(order, "hi")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(lo, func(tc *TaskContext) int32 {
		order = append(order, "lo:pre")
		if res := tc.TriggerEvent(hi); res != TriggerOK {
			t.Errorf("trigger hi: %s", res)
		}
		order = append(order, "lo:post")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(lo)

	want := []string{"lo:pre", "hi", "lo:post"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestLowerTriggerDeferredUntilCallerCompletes(t *testing.T) {
	k := newTestKernel(t)
	hi, _ := k.CreateEvent(EventConfig{Priority: 8})
	lo, _ := k.CreateEvent(EventConfig{Priority: 2})

	var order []string
	if err := k.RegisterTask(lo, func(tc *TaskContext) int32 {
		order = append(order, "lo")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(hi, func(tc *TaskContext) int32 {
		tc.TriggerEvent(lo)
		order = append(order, "hi:done")
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(hi)

	want := []string{"hi:done", "lo"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestEqualPriorityRunsInCreationOrder(t *testing.T) {
	k := newTestKernel(t)
	a, _ := k.CreateEvent(EventConfig{Priority: 6, CycleTime: 4})
	b, _ := k.CreateEvent(EventConfig{Priority: 6, CycleTime: 4})

	var order []EventID
	mark := func(id EventID) TaskFn {
		return func(tc *TaskContext) int32 {
			order = append(order, id)
			return 0
		}
	}
	if err := k.RegisterTask(a, mark(a), 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(b, mark(b), 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.Tick()

	if len(order) != 2 || order[0] != a || order[1] != b {
		t.Fatalf("expected [a b], got %v", order)
	}
}

func TestTasksOfOneEventRunInRegistrationOrder(t *testing.T) {
	k := newTestKernel(t)
	ev, _ := k.CreateEvent(EventConfig{Priority: 5})

	var order []int
	for i := 0; i < 3; i++ {
		n := i
		if err := k.RegisterTask(ev, func(tc *TaskContext) int32 {
			order = append(order, n)
			return 0
		}, 1, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(ev)

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("expected [0 1 2], got %v", order)
	}
}

func TestMinPIDGateOnTaskTrigger(t *testing.T) {
	k := newTestKernel(t)
	gated, _ := k.CreateEvent(EventConfig{Priority: 7, MinPIDToTrigger: 3})
	driver, _ := k.CreateEvent(EventConfig{Priority: 2})

	gatedRuns := 0
	var res TriggerResult
	if err := k.RegisterTask(gated, func(tc *TaskContext) int32 {
		gatedRuns++
		return 0
	}, 3, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(driver, func(tc *TaskContext) int32 {
		res = tc.TriggerEvent(gated)
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.TriggerEvent(driver)

	if res != TriggerDenied {
		t.Fatalf("expected TriggerDenied, got %s", res)
	}
	if gatedRuns != 0 {
		t.Fatalf("gated event ran %d times for an underprivileged trigger", gatedRuns)
	}

	// The gate applies to task code only; OS context may always trigger.
	if res := k.TriggerEvent(gated); res != TriggerOK {
		t.Fatalf("OS trigger: %s", res)
	}
	if gatedRuns != 1 {
		t.Fatalf("expected 1 run, got %d", gatedRuns)
	}
}

func TestStoppedProcessTasksAreRefused(t *testing.T) {
	k := newTestKernel(t)
	if err := k.GrantSuspend(2, 1); err != nil {
		t.Fatal(err)
	}

	victim, _ := k.CreateEvent(EventConfig{Priority: 3, CycleTime: 1})
	killer, _ := k.CreateEvent(EventConfig{Priority: 5})

	victimRuns := 0
	if err := k.RegisterTask(victim, func(tc *TaskContext) int32 {
		victimRuns++
		return 0
	}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.RegisterTask(killer, func(tc *TaskContext) int32 {
		tc.SuspendProcess(1)
		return 0
	}, 2, 0); err != nil {
		t.Fatal(err)
	}
	if err := k.Start(); err != nil {
		t.Fatal(err)
	}

	k.Tick()
	if victimRuns != 1 {
		t.Fatalf("expected 1 run before suspension, got %d", victimRuns)
	}

	k.TriggerEvent(killer)
	if got := k.ProcessState(1); got != ProcStopped {
		t.Fatalf("expected process 1 stopped, got %s", got)
	}

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	if victimRuns != 1 {
		t.Fatalf("stopped process ran %d more times", victimRuns-1)
	}
}
