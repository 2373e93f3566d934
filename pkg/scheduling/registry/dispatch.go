package registry

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vnykmshr/tasko/pkg/scheduling/runner"
)

// invocation is the part of a record a firing needs, copied under mu so the
// task runs without the lock.
type invocation struct {
	id      int
	name    string
	task    Task
	onStart Hook
	onStop  Hook
}

func (rec *record) invocation() invocation {
	return invocation{
		id:      rec.id,
		name:    rec.name,
		task:    rec.task,
		onStart: rec.onStart,
		onStop:  rec.onStop,
	}
}

// runOnce is the entry of a one-shot execution context. The slot is freed
// when it returns, whether or not the task asked to be removed. Events for a
// slot are emitted under its lock and before release, so a sink never sees
// them after the slot's next Added.
func (r *registry) runOnce(ctx context.Context, ident runner.Identity) {
	rec, err := r.slots.get(ident.Slot)
	if err != nil {
		return
	}

	rec.run.Lock()
	defer rec.run.Unlock()

	rec.mu.Lock()
	if !rec.owns(ident) || rec.removing || ctx.Err() != nil {
		rec.mu.Unlock()
		return
	}
	inv := rec.invocation()
	rec.mu.Unlock()

	dur, taskErr := r.fire(ctx, inv)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.owns(ident) {
		return
	}
	// The execution context exits on return; nothing left to destroy.
	rec.exec = nil
	r.emitFiring(inv, dur, taskErr)
	r.emit(Event{Kind: EventRemoved, ID: inv.id, Name: inv.name})
	r.slots.release(rec)
}

// runPeriodic is the timer callback of a repeating task. A removal requested
// by the previous firing is finalized here before the active check, so a
// pending task never runs again.
func (r *registry) runPeriodic(ctx context.Context, ident runner.Identity) {
	rec, err := r.slots.get(ident.Slot)
	if err != nil {
		return
	}

	rec.run.Lock()
	defer rec.run.Unlock()

	rec.mu.Lock()
	if !rec.owns(ident) || rec.removing {
		rec.mu.Unlock()
		return
	}

	if rec.pendingRemoval {
		r.releaseResource(rec)
		r.emit(Event{Kind: EventRemoved, ID: rec.id, Name: rec.name})
		r.slots.release(rec)
		rec.mu.Unlock()
		return
	}

	if !rec.active || ctx.Err() != nil {
		rec.mu.Unlock()
		return
	}
	inv := rec.invocation()
	rec.mu.Unlock()

	dur, taskErr := r.fire(ctx, inv)

	rec.mu.Lock()
	if rec.owns(ident) {
		rec.recordRun(r.now(), taskErr)
		r.emitFiring(inv, dur, taskErr)
	}
	rec.mu.Unlock()
}

// fire runs onStart, the task and onStop. A panic in any of them is reported
// as the firing's error; onStop still runs after a failing task.
func (r *registry) fire(ctx context.Context, inv invocation) (dur time.Duration, err error) {
	start := time.Now()
	defer func() {
		dur = time.Since(start)
	}()

	if inv.onStart != nil {
		if err := guard("onStart", func() error { inv.onStart(ctx, inv.id); return nil }); err != nil {
			return 0, err
		}
	}

	err = guard("task", func() error { return inv.task.Execute(ctx) })

	if inv.onStop != nil {
		if stopErr := guard("onStop", func() error { inv.onStop(ctx, inv.id); return nil }); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return dur, err
}

func guard(stage string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v\n%s", stage, p, debug.Stack())
		}
	}()
	return fn()
}

func (rec *record) recordRun(at time.Time, err error) {
	rec.runs++
	rec.lastRun = at
	rec.lastErr = err
}

func (r *registry) emitFiring(inv invocation, dur time.Duration, err error) {
	kind := EventFired
	if err != nil {
		kind = EventFailed
	}
	r.emit(Event{Kind: kind, ID: inv.id, Name: inv.name, Duration: dur, Err: err})
}
