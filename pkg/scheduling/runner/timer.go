package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
)

// timer drives one TimerSpec from its own goroutine. Firings run on that
// goroutine, so a slow OnFire delays the next firing instead of overlapping it.
type timer struct {
	runner *GoRunner
	spec   TimerSpec
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	deleted bool

	wake       chan struct{}
	quit       chan struct{}
	deleteOnce sync.Once
}

func (t *timer) Start() error {
	return t.setRunning(true)
}

func (t *timer) Stop() error {
	return t.setRunning(false)
}

func (t *timer) setRunning(running bool) error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return fmt.Errorf("timer %q: %w", t.spec.Name, gferrors.ErrClosed)
	}
	t.running = running
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

func (t *timer) Delete() error {
	t.deleteOnce.Do(func() {
		t.mu.Lock()
		t.deleted = true
		t.running = false
		t.mu.Unlock()

		t.cancel()
		close(t.quit)
		t.runner.timers.Add(-1)
	})
	return nil
}

func (t *timer) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *timer) next(after time.Time) time.Time {
	return t.spec.Schedule.Next(after.In(t.runner.location))
}

func (t *timer) loop() {
	defer t.runner.wg.Done()

	tm := time.NewTimer(time.Hour)
	tm.Stop()
	defer tm.Stop()

	var (
		fireCh <-chan time.Time
		due    time.Time
	)

	for {
		select {
		case <-t.quit:
			return

		case <-t.wake:
			tm.Stop()
			fireCh = nil
			if t.isRunning() {
				due = t.next(time.Now())
				tm.Reset(time.Until(due))
				fireCh = tm.C
			}

		case <-fireCh:
			if !t.isRunning() {
				fireCh = nil
				continue
			}
			t.fire()

			// Keep the cadence anchored to the previous due time, skipping
			// ticks that were missed while OnFire ran.
			now := time.Now()
			due = t.next(due)
			if due.Before(now) {
				due = t.next(now)
			}
			tm.Reset(time.Until(due))
		}
	}
}

func (t *timer) fire() {
	defer func() {
		if p := recover(); p != nil {
			t.runner.log.Error().
				Str("name", t.spec.Name).
				Int("slot", t.spec.Identity.Slot).
				Str("stack", string(debug.Stack())).
				Msgf("timer callback panicked: %v", p)
		}
	}()

	if t.ctx.Err() != nil {
		return
	}
	t.spec.OnFire(t.ctx, t.spec.Identity)
}
