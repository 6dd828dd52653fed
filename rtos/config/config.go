// Package config loads a YAML system description and applies it to a
// kernel during the configuration phase. The description is static: it
// names processes, their memory layout, the event table and the task
// bindings. Task functions are code, not data; the description refers to
// them by name and Apply resolves the names against a function table
// supplied by the firmware image.
package config

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"citadel/rtos/kernel"
)

// TaskSpec binds a named task function to an event.
type TaskSpec struct {
	Func     string `yaml:"func"`
	PID      uint8  `yaml:"pid"`
	Deadline uint32 `yaml:"deadline"` // ticks; 0 = unmonitored
}

// EventSpec describes one trigger condition.
type EventSpec struct {
	Name            string     `yaml:"name"`
	Priority        uint8      `yaml:"priority"`
	CycleTime       uint32     `yaml:"cycle_time"` // ticks; 0 = software-triggered only
	FirstActivation uint32     `yaml:"first_activation"`
	MinPIDToTrigger uint8      `yaml:"min_pid_to_trigger"`
	Tasks           []TaskSpec `yaml:"tasks"`
}

// RegionSpec describes one extra memory range of a process. The backing
// storage is allocated by Apply.
type RegionSpec struct {
	Base     uint32 `yaml:"base"`
	Size     int    `yaml:"size"`
	Writable bool   `yaml:"writable"`
}

// ProcessSpec describes one user process.
type ProcessSpec struct {
	PID        uint8        `yaml:"pid"`
	StackBytes int          `yaml:"stack_bytes"`
	StackBase  uint32       `yaml:"stack_base"`
	Regions    []RegionSpec `yaml:"regions"`
	MaySuspend []uint8      `yaml:"may_suspend"`
}

// System mirrors the YAML system description.
type System struct {
	TickHz    int           `yaml:"tick_hz"`
	Processes []ProcessSpec `yaml:"processes"`
	Events    []EventSpec   `yaml:"events"`
}

const (
	defaultTickHz     = 1000
	defaultStackBytes = 256
)

// Load reads a YAML system description. Defaults are filled in for
// omitted fields; structural problems are reported, semantic ones are
// left to Apply and kernel.Start.
func Load(path string) (System, error) {
	var sys System

	data, err := os.ReadFile(path)
	if err != nil {
		return sys, err
	}
	if err := yaml.Unmarshal(data, &sys); err != nil {
		return sys, fmt.Errorf("parse %s: %w", path, err)
	}

	if sys.TickHz <= 0 {
		sys.TickHz = defaultTickHz
	}
	for i := range sys.Processes {
		if sys.Processes[i].StackBytes <= 0 {
			sys.Processes[i].StackBytes = defaultStackBytes
		}
	}
	return sys, nil
}

// Apply configures a fresh kernel from the description. funcs maps task
// names to code; a nil map binds every task to a no-op, which is enough
// to validate a description offline. The returned map resolves event
// names to their identifiers for software triggering.
func Apply(k *kernel.Kernel, sys System, funcs map[string]kernel.TaskFn) (map[string]kernel.EventID, error) {
	for _, ps := range sys.Processes {
		cfg := kernel.ProcessConfig{
			StackBytes: ps.StackBytes,
			StackBase:  ps.StackBase,
		}
		for _, rs := range ps.Regions {
			if rs.Size <= 0 {
				return nil, fmt.Errorf("process %d: region at %#x has size %d", ps.PID, rs.Base, rs.Size)
			}
			cfg.Regions = append(cfg.Regions, kernel.MemRegion{
				Base:     rs.Base,
				Data:     make([]byte, rs.Size),
				Writable: rs.Writable,
			})
		}
		if err := k.ConfigureProcess(kernel.PID(ps.PID), cfg); err != nil {
			return nil, fmt.Errorf("process %d: %w", ps.PID, err)
		}
	}
	for _, ps := range sys.Processes {
		for _, target := range ps.MaySuspend {
			if err := k.GrantSuspend(kernel.PID(ps.PID), kernel.PID(target)); err != nil {
				return nil, fmt.Errorf("process %d: suspend grant for %d: %w", ps.PID, target, err)
			}
		}
	}

	ids := make(map[string]kernel.EventID, len(sys.Events))
	for _, es := range sys.Events {
		id, err := k.CreateEvent(kernel.EventConfig{
			CycleTime:       es.CycleTime,
			FirstActivation: es.FirstActivation,
			Priority:        kernel.Priority(es.Priority),
			MinPIDToTrigger: kernel.PID(es.MinPIDToTrigger),
		})
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", es.Name, err)
		}
		if es.Name != "" {
			if _, dup := ids[es.Name]; dup {
				return nil, fmt.Errorf("event %q: duplicate name", es.Name)
			}
			ids[es.Name] = id
		}
		for _, ts := range es.Tasks {
			fn := taskFunc(funcs, ts.Func)
			if fn == nil {
				return nil, fmt.Errorf("event %q: unknown task function %q", es.Name, ts.Func)
			}
			if err := k.RegisterTask(id, fn, kernel.PID(ts.PID), ts.Deadline); err != nil {
				return nil, fmt.Errorf("event %q: task %q: %w", es.Name, ts.Func, err)
			}
		}
	}
	return ids, nil
}

func taskFunc(funcs map[string]kernel.TaskFn, name string) kernel.TaskFn {
	if funcs == nil {
		return func(*kernel.TaskContext) int32 { return 0 }
	}
	return funcs[name]
}
