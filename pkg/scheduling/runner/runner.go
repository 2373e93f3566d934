package runner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Identity names one occupancy of a registry slot. Gen changes every time the
// slot is released, so a dispatch carrying an old Identity can be told apart
// from the slot's current occupant.
type Identity struct {
	Slot int
	Gen  uint64
}

// EntryFunc is invoked by the runner on an execution context or timer firing.
// ctx carries the Identity and is canceled when the resource is destroyed.
type EntryFunc func(ctx context.Context, id Identity)

// SpawnSpec describes a one-shot execution context.
type SpawnSpec struct {
	Name     string
	Entry    EntryFunc
	Identity Identity

	// StackSize, Priority and Core are scheduling hints. GoRunner records
	// them on the handle but does not act on them.
	StackSize int
	Priority  int
	Core      int

	// Delay postpones the call to Entry. Destroying the handle before the
	// delay elapses means Entry never runs.
	Delay time.Duration
}

// TimerSpec describes a periodic timer.
type TimerSpec struct {
	Name     string
	Identity Identity

	// Schedule decides firing times. Use Every for a fixed period.
	Schedule cron.Schedule
	OnFire   EntryFunc
}

// ExecHandle owns a spawned execution context.
type ExecHandle interface {
	Identity() Identity
	// Done is closed once the execution context has exited.
	Done() <-chan struct{}
}

// Timer owns a periodic timer. A new Timer is stopped.
type Timer interface {
	Start() error
	Stop() error
	// Delete releases the timer. It does not wait for a firing in progress
	// and may be called from within the timer's own OnFire.
	Delete() error
}

// Runner is the execution layer the registry sits on.
type Runner interface {
	Spawn(spec SpawnSpec) (ExecHandle, error)

	// Destroy releases an execution context. It must be safe to call from any
	// context other than the one being destroyed.
	Destroy(h ExecHandle)

	// Current reports the identity of the execution context ctx belongs to.
	Current(ctx context.Context) (Identity, bool)

	NewTimer(spec TimerSpec) (Timer, error)
}

type identityKey struct{}

// WithIdentity returns a child context tagged with id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Every returns a schedule that fires every d. Unlike cron.Every it keeps
// sub-second periods.
func Every(d time.Duration) cron.Schedule {
	return every(d)
}

type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}
