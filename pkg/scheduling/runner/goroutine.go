package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
)

// Config holds GoRunner configuration.
type Config struct {
	// MaxExecutions caps live one-shot execution contexts (0 = unlimited).
	// Spawn beyond the cap fails with ErrResourceCreation.
	MaxExecutions int

	// MaxTimers caps undeleted timers (0 = unlimited).
	MaxTimers int

	// Location is used to evaluate cron schedules (default: time.Local).
	Location *time.Location

	// Logger receives recovered panics. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// GoRunner runs execution contexts as goroutines and timers on time.Timer.
type GoRunner struct {
	maxExecutions int64
	maxTimers     int64
	location      *time.Location
	log           zerolog.Logger

	executions atomic.Int64
	timers     atomic.Int64
	wg         sync.WaitGroup
}

// New creates a GoRunner with default configuration.
func New() *GoRunner {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a GoRunner with custom configuration.
func NewWithConfig(cfg Config) *GoRunner {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "runner").Logger()
	}

	return &GoRunner{
		maxExecutions: int64(cfg.MaxExecutions),
		maxTimers:     int64(cfg.MaxTimers),
		location:      location,
		log:           log,
	}
}

// Executions returns the number of live execution contexts.
func (r *GoRunner) Executions() int {
	return int(r.executions.Load())
}

// Timers returns the number of timers not yet deleted.
func (r *GoRunner) Timers() int {
	return int(r.timers.Load())
}

// Wait blocks until every goroutine started by the runner has exited or ctx
// is done.
func (r *GoRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current implements Runner.
func (r *GoRunner) Current(ctx context.Context) (Identity, bool) {
	return IdentityFrom(ctx)
}

type execution struct {
	identity  Identity
	name      string
	stackSize int
	priority  int
	core      int
	cancel    context.CancelFunc
	done      chan struct{}
}

func (e *execution) Identity() Identity    { return e.identity }
func (e *execution) Done() <-chan struct{} { return e.done }

func (e *execution) String() string {
	return fmt.Sprintf("%s[slot=%d gen=%d stack=%d prio=%d core=%d]",
		e.name, e.identity.Slot, e.identity.Gen, e.stackSize, e.priority, e.core)
}

// Spawn implements Runner.
func (r *GoRunner) Spawn(spec SpawnSpec) (ExecHandle, error) {
	if spec.Entry == nil {
		return nil, fmt.Errorf("%w: spawn %q: nil entry", gferrors.ErrResourceCreation, spec.Name)
	}
	if !reserve(&r.executions, r.maxExecutions) {
		return nil, fmt.Errorf("%w: spawn %q: execution limit (%d) reached",
			gferrors.ErrResourceCreation, spec.Name, r.maxExecutions)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &execution{
		identity:  spec.Identity,
		name:      spec.Name,
		stackSize: spec.StackSize,
		priority:  spec.Priority,
		core:      spec.Core,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.wg.Add(1)
	go r.execute(WithIdentity(ctx, spec.Identity), e, spec)
	return e, nil
}

func (r *GoRunner) execute(ctx context.Context, e *execution, spec SpawnSpec) {
	defer r.wg.Done()
	defer r.executions.Add(-1)
	defer close(e.done)
	defer e.cancel()

	if spec.Delay > 0 {
		t := time.NewTimer(spec.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Str("name", e.name).
				Int("slot", e.identity.Slot).
				Str("stack", string(debug.Stack())).
				Msgf("execution panicked: %v", p)
		}
	}()
	spec.Entry(ctx, spec.Identity)
}

// Destroy implements Runner. It cancels the execution's context and returns
// without waiting for it to exit.
func (r *GoRunner) Destroy(h ExecHandle) {
	if e, ok := h.(*execution); ok && e != nil {
		e.cancel()
	}
}

// NewTimer implements Runner.
func (r *GoRunner) NewTimer(spec TimerSpec) (Timer, error) {
	if spec.OnFire == nil {
		return nil, fmt.Errorf("%w: timer %q: nil callback", gferrors.ErrResourceCreation, spec.Name)
	}
	if spec.Schedule == nil {
		return nil, fmt.Errorf("%w: timer %q: nil schedule", gferrors.ErrResourceCreation, spec.Name)
	}
	if !reserve(&r.timers, r.maxTimers) {
		return nil, fmt.Errorf("%w: timer %q: timer limit (%d) reached",
			gferrors.ErrResourceCreation, spec.Name, r.maxTimers)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &timer{
		runner: r,
		spec:   spec,
		ctx:    WithIdentity(ctx, spec.Identity),
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}

	r.wg.Add(1)
	go t.loop()
	return t, nil
}

// reserve increments counter unless that would exceed limit (0 = unlimited).
func reserve(counter *atomic.Int64, limit int64) bool {
	for {
		n := counter.Load()
		if limit > 0 && n >= limit {
			return false
		}
		if counter.CompareAndSwap(n, n+1) {
			return true
		}
	}
}
