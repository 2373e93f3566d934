package registry

import (
	"context"
	"time"
)

// InvalidID is returned by Add when no task was registered.
const InvalidID = -1

// Task represents a unit of work run by the registry.
type Task interface {
	// Execute runs the task. ctx is canceled when the task is removed by
	// another goroutine; Execute is never interrupted otherwise.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Hook is called with the firing's context and the task id immediately
// before or after every firing. ctx identifies the firing like the task's own
// context does, so a hook removes its task with Remove(ctx, id).
type Hook func(ctx context.Context, id int)

// TaskSpec describes a task to register.
type TaskSpec struct {
	// Name labels the task in logs, events and metrics. Optional.
	Name string

	Task Task

	// Repeating selects a periodic task. One-shot tasks free their slot as
	// soon as they return.
	Repeating bool

	// Interval is the period of a repeating task. Ignored for one-shots.
	Interval time.Duration

	// Cron schedules a repeating task with a cron expression instead of
	// Interval, e.g. "*/5 * * * * *" or "@every 1m".
	Cron string

	// Delay postpones the first and only run of a one-shot task.
	Delay time.Duration

	// Scheduling hints passed through to the runner.
	Priority  int
	Core      int
	StackSize int

	OnStart Hook
	OnStop  Hook
}

// TaskInfo is a point-in-time view of an occupied slot.
type TaskInfo struct {
	ID             int
	Name           string
	Repeating      bool
	Active         bool
	PendingRemoval bool
	Interval       time.Duration
	Cron           string
	Priority       int
	Core           int
	Runs           uint64
	LastRun        time.Time
	LastError      error
	Added          time.Time
}
