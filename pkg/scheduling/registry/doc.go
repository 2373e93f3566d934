/*
Package registry provides a bounded registry of one-shot and repeating tasks.

A Registry owns a fixed number of slots. Each Add claims the lowest free slot
and binds it to an execution resource from a runner.Runner: a spawned
execution context for one-shot tasks, or a timer for repeating ones. The slot
index is the task id.

Basic usage:

	reg := registry.New(16)
	defer reg.Close(context.Background())

	id, err := reg.Add(registry.TaskSpec{
		Name:      "heartbeat",
		Repeating: true,
		Interval:  time.Second,
		Task: registry.TaskFunc(func(ctx context.Context) error {
			return ping(ctx)
		}),
	})

Repeating tasks take either Interval or a Cron expression (seconds field
optional, descriptors such as @hourly accepted). One-shot tasks run once,
after the optional Delay, and free their slot when they return.

Self-removal:

A task may remove itself from inside its own firing. Self resolves the id
from the firing's context:

	Task: registry.TaskFunc(func(ctx context.Context) error {
		if done() {
			id, _ := reg.Self(ctx)
			reg.Remove(ctx, id)
		}
		return nil
	})

The call marks the task pending and returns immediately. A one-shot slot is
freed when the task returns; a repeating slot is freed at the next firing,
which does not run the task. OnStart and OnStop hooks receive the same
context and remove their task the same way. The firing's context must be
passed: Remove with any other context waits for the firing to return.

Removal from anywhere else cancels the task's context and waits for a firing
in progress to return. Removing one task from inside another therefore blocks
that firing until the target finishes; two tasks removing each other while
both are running deadlock.

Pause and Resume apply to repeating tasks only. A pending or removing task
cannot be paused or resumed.

Events:

Every transition is reported to Config.Sink and, with metrics enabled, to
Prometheus. Events of a slot are delivered in order while the slot is locked,
and the last event of an occupancy precedes the next occupancy's Added. EnableDebug logs each transition through the configured
zerolog logger.

Thread Safety:

All methods are safe for concurrent use. Tasks and hooks run without any
slot lock held, so they may call back into the registry, except Close, which
is rejected from inside a task. Sinks run under the slot lock and must not
call back into the registry.
*/
package registry
