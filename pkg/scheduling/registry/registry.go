package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
	"github.com/vnykmshr/tasko/pkg/common/validation"
	"github.com/vnykmshr/tasko/pkg/metrics"
	"github.com/vnykmshr/tasko/pkg/scheduling/runner"
)

// Registry tracks a fixed number of one-shot and repeating tasks.
//
// All methods are safe for concurrent use, including from inside a running
// task. A task removes itself with:
//
//	id, _ := reg.Self(ctx)
//	reg.Remove(ctx, id)
type Registry interface {
	// Add registers a task and returns its id. On failure the id is
	// InvalidID and the error wraps ErrCapacityExceeded, ErrResourceCreation,
	// ErrClosed or ErrInvalidConfiguration.
	Add(spec TaskSpec) (int, error)

	// Remove unregisters a task. Called with the context of the task's own
	// firing (the ctx given to Execute or to a Hook), it only marks the task
	// for removal and returns; the slot is freed when the one-shot returns or
	// at the repeating task's next firing. Otherwise it cancels the task's
	// context, waits for an in-flight firing to return and frees the slot, so
	// a firing that removes its own task with an unrelated context never
	// returns. Unknown or free ids are a no-op returning false.
	Remove(ctx context.Context, id int) bool

	// Pause stops a repeating task's timer. It reports whether the task
	// changed state; one-shot tasks cannot be paused.
	Pause(id int) bool

	// Resume restarts a paused repeating task at its original cadence.
	Resume(id int) bool

	// ClearAll removes every task occupied at call time.
	ClearAll(ctx context.Context)

	// EnableDebug toggles lifecycle logging.
	EnableDebug(enable bool)

	// Self returns the id of the task whose firing ctx belongs to.
	Self(ctx context.Context) (int, bool)

	Get(id int) (TaskInfo, error)
	List() []TaskInfo
	Len() int
	Cap() int

	// Close removes every task and rejects further Adds. A registry that
	// created its own runner also waits for the runner's goroutines to exit.
	// Close must not be called from inside a task.
	Close(ctx context.Context) error
}

type registry struct {
	name      string
	runner    runner.Runner
	ownRunner *runner.GoRunner
	slots     *slotTable
	stackSize int
	parser    cron.Parser

	log     zerolog.Logger
	debug   atomic.Bool
	sink    EventSink
	metrics *metricsSink
	now     func() time.Time
}

// New creates a registry with the given capacity and default configuration.
// It panics if capacity is not positive.
func New(capacity int) Registry {
	if capacity <= 0 {
		panic("registry capacity must be positive")
	}
	r, err := NewWithConfig(Config{Capacity: capacity})
	if err != nil {
		panic(err)
	}
	return r
}

// NewWithMetrics creates a registry whose metrics go to a private
// Prometheus registry, returned alongside so callers can expose it.
func NewWithMetrics(capacity int, name string) (Registry, *prometheus.Registry) {
	promReg := prometheus.NewRegistry()
	r, err := NewWithConfig(Config{
		Name:     name,
		Capacity: capacity,
		Metrics:  metrics.Config{Enabled: true, Registry: promReg},
	})
	if err != nil {
		panic(err)
	}
	return r, promReg
}

// NewWithConfig creates a registry with custom configuration.
func NewWithConfig(cfg Config) (Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	r := &registry{
		name:      cfg.Name,
		runner:    cfg.Runner,
		slots:     newSlotTable(cfg.Capacity),
		stackSize: cfg.StackSize,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
			cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		log:  cfg.Logger.With().Str("registry", cfg.Name).Logger(),
		sink: cfg.Sink,
		now:  cfg.Clock,
	}
	r.debug.Store(cfg.Debug)

	if r.runner == nil {
		r.ownRunner = runner.NewWithConfig(runner.Config{
			Location: cfg.Location,
			Logger:   cfg.Logger,
		})
		r.runner = r.ownRunner
	}

	if reg := cfg.Metrics.Resolve(); reg != nil {
		r.metrics = newMetricsSink(cfg.Name, reg, cfg.Capacity)
	}

	return r, nil
}

func (r *registry) validate(spec TaskSpec) (cron.Schedule, error) {
	if spec.Task == nil {
		return nil, validation.ValidateNotNil("registry", "task", nil)
	}
	if err := validation.ValidateNonNegative("registry", "stack_size", spec.StackSize); err != nil {
		return nil, err
	}

	if !spec.Repeating {
		return nil, validation.ValidateNonNegativeDuration("registry", "delay", spec.Delay)
	}

	if spec.Cron != "" {
		schedule, err := r.parser.Parse(spec.Cron)
		if err != nil {
			return nil, gferrors.NewValidationError("registry", "cron", spec.Cron, err.Error()).
				WithHint("use 5 or 6 fields, or a descriptor such as @every 1m")
		}
		return schedule, nil
	}
	if err := validation.ValidatePositiveDuration("registry", "interval", spec.Interval); err != nil {
		return nil, err
	}
	return runner.Every(spec.Interval), nil
}

func (r *registry) Add(spec TaskSpec) (int, error) {
	schedule, err := r.validate(spec)
	if err != nil {
		r.addFailed(spec, "invalid", err)
		return InvalidID, err
	}

	rec, err := r.slots.acquire()
	if err != nil {
		reason := "capacity"
		if errors.Is(err, gferrors.ErrClosed) {
			reason = "closed"
		}
		r.addFailed(spec, reason, err)
		return InvalidID, fmt.Errorf("cannot add task %q: %w", spec.Name, err)
	}

	stackSize := spec.StackSize
	if stackSize == 0 {
		stackSize = r.stackSize
	}
	rec.name = spec.Name
	rec.task = spec.Task
	rec.onStart = spec.OnStart
	rec.onStop = spec.OnStop
	rec.repeating = spec.Repeating
	rec.priority = spec.Priority
	rec.core = spec.Core
	rec.stackSize = stackSize
	rec.added = r.now()
	if spec.Repeating {
		rec.interval = spec.Interval
		rec.cronExpr = spec.Cron
		rec.schedule = schedule
	} else {
		rec.delay = spec.Delay
	}

	if err := r.createResource(rec); err != nil {
		r.slots.release(rec)
		rec.mu.Unlock()
		r.addFailed(spec, "resource", err)
		return InvalidID, gferrors.NewOperationError("registry", "Add", InvalidID, err).
			WithContext(fmt.Sprintf("task %q", spec.Name))
	}

	r.slots.occupy(rec)
	id := rec.id
	r.emit(Event{Kind: EventAdded, ID: id, Name: spec.Name})
	rec.mu.Unlock()
	return id, nil
}

// createResource asks the runner for the record's timer or execution context.
// Caller holds rec.mu.
func (r *registry) createResource(rec *record) error {
	ident := rec.identity()

	if rec.repeating {
		tm, err := r.runner.NewTimer(runner.TimerSpec{
			Name:     rec.name,
			Identity: ident,
			Schedule: rec.schedule,
			OnFire:   r.runPeriodic,
		})
		if err != nil {
			return err
		}
		if err := tm.Start(); err != nil {
			_ = tm.Delete()
			return fmt.Errorf("%w: start timer: %v", gferrors.ErrResourceCreation, err)
		}
		rec.timer = tm
		return nil
	}

	h, err := r.runner.Spawn(runner.SpawnSpec{
		Name:      rec.name,
		Entry:     r.runOnce,
		Identity:  ident,
		StackSize: rec.stackSize,
		Priority:  rec.priority,
		Core:      rec.core,
		Delay:     rec.delay,
	})
	if err != nil {
		return err
	}
	rec.exec = h
	return nil
}

// releaseResource destroys the record's runtime handle without waiting.
// Caller holds rec.mu.
func (r *registry) releaseResource(rec *record) {
	if rec.timer != nil {
		if err := rec.timer.Delete(); err != nil {
			r.log.Warn().Err(err).Int("id", rec.id).Msg("timer delete failed")
		}
	}
	if rec.exec != nil {
		r.runner.Destroy(rec.exec)
	}
}

func (r *registry) Remove(ctx context.Context, id int) bool {
	rec, err := r.slots.get(id)
	if err != nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rec.mu.Lock()
	if !rec.occupied {
		rec.mu.Unlock()
		return false
	}
	wasActive := rec.active
	rec.active = false
	ident := rec.identity()
	name := rec.name

	if cur, ok := r.runner.Current(ctx); ok && cur == ident {
		// A firing cannot tear down its own execution context; leave the
		// release to the dispatch wrapper.
		if !rec.pendingRemoval && !rec.removing {
			rec.pendingRemoval = true
			// A paused timer would never reach the firing that finalizes.
			if rec.repeating && !wasActive {
				if err := rec.timer.Start(); err != nil {
					r.log.Warn().Err(err).Int("id", id).Msg("cannot restart timer for pending removal")
				}
			}
			r.emit(Event{Kind: EventPendingRemoved, ID: id, Name: name})
		}
		rec.mu.Unlock()
		return true
	}

	if !rec.removing {
		rec.removing = true
		r.releaseResource(rec)
	}
	rec.mu.Unlock()

	// Wait for an in-flight firing of this slot to return.
	rec.run.Lock()
	rec.mu.Lock()
	if rec.owns(ident) {
		r.emit(Event{Kind: EventRemoved, ID: id, Name: name})
		r.slots.release(rec)
	}
	rec.mu.Unlock()
	rec.run.Unlock()
	return true
}

func (r *registry) Pause(id int) bool {
	return r.setActive(id, false)
}

func (r *registry) Resume(id int) bool {
	return r.setActive(id, true)
}

func (r *registry) setActive(id int, active bool) bool {
	rec, err := r.slots.get(id)
	if err != nil {
		return false
	}

	rec.mu.Lock()
	if !rec.occupied || rec.removing || rec.pendingRemoval || rec.active == active {
		rec.mu.Unlock()
		return false
	}
	if !rec.repeating {
		rec.mu.Unlock()
		if r.debug.Load() {
			r.log.Debug().Int("id", id).Bool("active", active).Msg("pause/resume ignored for one-shot task")
		}
		return false
	}

	var err2 error
	if active {
		err2 = rec.timer.Start()
	} else {
		err2 = rec.timer.Stop()
	}
	if err2 != nil {
		rec.mu.Unlock()
		r.log.Warn().Err(err2).Int("id", id).Bool("active", active).Msg("timer state change failed")
		return false
	}
	rec.active = active

	kind := EventPaused
	if active {
		kind = EventResumed
	}
	r.emit(Event{Kind: kind, ID: id, Name: rec.name})
	rec.mu.Unlock()
	return true
}

func (r *registry) ClearAll(ctx context.Context) {
	for _, id := range r.slots.occupiedIDs() {
		r.Remove(ctx, id)
	}
}

func (r *registry) EnableDebug(enable bool) {
	r.debug.Store(enable)
}

func (r *registry) Self(ctx context.Context) (int, bool) {
	if ctx == nil {
		return InvalidID, false
	}
	ident, ok := r.runner.Current(ctx)
	if !ok {
		return InvalidID, false
	}

	rec, err := r.slots.get(ident.Slot)
	if err != nil {
		return InvalidID, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.owns(ident) {
		return InvalidID, false
	}
	return rec.id, true
}

func (r *registry) Get(id int) (TaskInfo, error) {
	rec, err := r.slots.get(id)
	if err != nil {
		return TaskInfo{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.occupied {
		return TaskInfo{}, gferrors.ErrInvalidID
	}
	return rec.info(), nil
}

func (r *registry) List() []TaskInfo {
	var tasks []TaskInfo
	for _, id := range r.slots.occupiedIDs() {
		if info, err := r.Get(id); err == nil {
			tasks = append(tasks, info)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

func (r *registry) Len() int {
	return int(r.slots.occupied.Load())
}

func (r *registry) Cap() int {
	return r.slots.capacity()
}

func (r *registry) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := r.runner.Current(ctx); ok {
		return fmt.Errorf("registry %q: Close called from inside a task", r.name)
	}

	r.slots.close()
	r.ClearAll(ctx)

	if r.ownRunner != nil {
		return r.ownRunner.Wait(ctx)
	}
	return nil
}

func (r *registry) addFailed(spec TaskSpec, reason string, err error) {
	if r.metrics != nil {
		r.metrics.addFailed(reason)
	}
	if r.debug.Load() {
		r.log.Debug().Str("name", spec.Name).Str("reason", reason).Err(err).Msg("add rejected")
	}
}

// emit stamps e and hands it to the debug log, metrics and sink. Callers
// hold the slot's mu, which orders events per slot.
func (r *registry) emit(e Event) {
	e.At = r.now()

	if r.debug.Load() {
		ev := r.log.Debug().Str("event", e.Kind.String()).Int("id", e.ID)
		if e.Name != "" {
			ev = ev.Str("name", e.Name)
		}
		if e.Kind == EventFired || e.Kind == EventFailed {
			ev = ev.Dur("duration", e.Duration)
		}
		ev.Err(e.Err).Msg("task lifecycle")
	}
	if e.Kind == EventFailed {
		r.log.Warn().Int("id", e.ID).Str("name", e.Name).Err(e.Err).Msg("task failed")
	}

	if r.metrics != nil {
		r.metrics.OnEvent(e)
	}
	if r.sink != nil {
		r.sink.OnEvent(e)
	}
}
