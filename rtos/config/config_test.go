package config

import (
	"os"
	"path/filepath"
	"testing"

	"citadel/rtos/kernel"
)

const sampleYAML = `
tick_hz: 100
processes:
  - pid: 1
    stack_bytes: 200
    stack_base: 0x1000
    regions:
      - base: 0x2000
        size: 64
        writable: true
  - pid: 2
    stack_base: 0x3000
    may_suspend: [1]
events:
  - name: housekeeping
    priority: 3
    cycle_time: 10
    tasks:
      - func: report
        pid: 1
        deadline: 4
  - name: request
    priority: 5
    min_pid_to_trigger: 2
    tasks:
      - func: handle
        pid: 2
`

func writeSample(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system.yaml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	sys, err := Load(writeSample(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sys.TickHz != 100 {
		t.Errorf("TickHz = %d, want 100", sys.TickHz)
	}
	if len(sys.Processes) != 2 || len(sys.Events) != 2 {
		t.Fatalf("got %d processes, %d events", len(sys.Processes), len(sys.Events))
	}
	if sys.Processes[0].StackBytes != 200 {
		t.Errorf("explicit stack = %d, want 200", sys.Processes[0].StackBytes)
	}
	if sys.Processes[1].StackBytes != defaultStackBytes {
		t.Errorf("defaulted stack = %d, want %d", sys.Processes[1].StackBytes, defaultStackBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of missing file did not fail")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeSample(t, "events: [}")); err == nil {
		t.Fatal("Load of malformed description did not fail")
	}
}

func TestApplyBuildsStartableKernel(t *testing.T) {
	sys, err := Load(writeSample(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	k := kernel.New()
	ids, err := Apply(k, sys, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d event ids, want 2", len(ids))
	}
	if _, ok := ids["housekeeping"]; !ok {
		t.Error("housekeeping event not named")
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if k.ProcessState(1) != kernel.ProcRunning {
		t.Error("process 1 not released")
	}
}

func TestApplyResolvesFunctions(t *testing.T) {
	sys, err := Load(writeSample(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ran := false
	funcs := map[string]kernel.TaskFn{
		"report": func(*kernel.TaskContext) int32 { ran = true; return 0 },
		"handle": func(*kernel.TaskContext) int32 { return 0 },
	}

	k := kernel.New()
	ids, err := Apply(k, sys, funcs)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 10; i++ {
		k.Tick()
	}
	if !ran {
		t.Error("bound task function never ran")
	}
	if _, ok := ids["request"]; !ok {
		t.Error("request event not named")
	}
}

func TestApplyRejectsUnknownFunction(t *testing.T) {
	sys, err := Load(writeSample(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	funcs := map[string]kernel.TaskFn{
		"report": func(*kernel.TaskContext) int32 { return 0 },
		// "handle" deliberately missing.
	}
	if _, err := Apply(kernel.New(), sys, funcs); err == nil {
		t.Fatal("Apply with unresolved task function did not fail")
	}
}

func TestApplyRejectsDuplicateEventName(t *testing.T) {
	sys := System{
		Processes: []ProcessSpec{{PID: 1, StackBytes: 64, StackBase: 0x1000}},
		Events: []EventSpec{
			{Name: "twin", Priority: 2, Tasks: []TaskSpec{{Func: "a", PID: 1}}},
			{Name: "twin", Priority: 3, Tasks: []TaskSpec{{Func: "a", PID: 1}}},
		},
	}
	if _, err := Apply(kernel.New(), sys, nil); err == nil {
		t.Fatal("Apply with duplicate event name did not fail")
	}
}

func TestApplyRejectsEmptyRegion(t *testing.T) {
	sys := System{
		Processes: []ProcessSpec{{
			PID: 1, StackBytes: 64, StackBase: 0x1000,
			Regions: []RegionSpec{{Base: 0x2000, Size: 0}},
		}},
	}
	if _, err := Apply(kernel.New(), sys, nil); err == nil {
		t.Fatal("Apply with empty region did not fail")
	}
}
