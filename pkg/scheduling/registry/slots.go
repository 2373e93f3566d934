package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	gferrors "github.com/vnykmshr/tasko/pkg/common/errors"
	"github.com/vnykmshr/tasko/pkg/scheduling/runner"
)

// record is one slot of the table.
//
// mu guards every field below it. run is held for the whole of a firing
// (onStart, task, onStop) so that removal can wait for an in-flight firing
// to drain. Lock order is run before mu; nothing waits on run while holding mu.
type record struct {
	run sync.Mutex
	mu  sync.Mutex

	id  int
	gen uint64

	slotState
}

// slotState is everything cleared when a slot is released.
type slotState struct {
	name      string
	task      Task
	onStart   Hook
	onStop    Hook
	interval  time.Duration
	cronExpr  string
	schedule  cron.Schedule
	delay     time.Duration
	priority  int
	core      int
	stackSize int
	repeating bool

	occupied       bool
	active         bool
	pendingRemoval bool
	removing       bool

	exec  runner.ExecHandle
	timer runner.Timer

	added   time.Time
	runs    uint64
	lastRun time.Time
	lastErr error
}

func (rec *record) identity() runner.Identity {
	return runner.Identity{Slot: rec.id, Gen: rec.gen}
}

// owns reports whether id refers to the slot's current occupant.
func (rec *record) owns(id runner.Identity) bool {
	return rec.occupied && rec.gen == id.Gen
}

func (rec *record) info() TaskInfo {
	return TaskInfo{
		ID:             rec.id,
		Name:           rec.name,
		Repeating:      rec.repeating,
		Active:         rec.active,
		PendingRemoval: rec.pendingRemoval,
		Interval:       rec.interval,
		Cron:           rec.cronExpr,
		Priority:       rec.priority,
		Core:           rec.core,
		Runs:           rec.runs,
		LastRun:        rec.lastRun,
		LastError:      rec.lastErr,
		Added:          rec.added,
	}
}

// reset returns the record to its free state. Both runtime handles must
// already have been released by the caller.
func (rec *record) reset() {
	rec.slotState = slotState{}
	rec.gen++
}

// slotTable is a fixed arena of records addressed by index.
type slotTable struct {
	allocMu sync.Mutex
	closed  bool

	records  []record
	occupied atomic.Int32
}

func newSlotTable(capacity int) *slotTable {
	t := &slotTable{records: make([]record, capacity)}
	for i := range t.records {
		t.records[i].id = i
	}
	return t
}

func (t *slotTable) capacity() int {
	return len(t.records)
}

// acquire finds the lowest free slot. The record is returned with mu held and
// still unoccupied; the caller either commits it with occupy or unlocks it,
// so no other goroutine sees a half-built record.
func (t *slotTable) acquire() (*record, error) {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()

	if t.closed {
		return nil, gferrors.ErrClosed
	}

	for i := range t.records {
		rec := &t.records[i]
		rec.mu.Lock()
		if !rec.occupied {
			return rec, nil
		}
		rec.mu.Unlock()
	}
	return nil, gferrors.ErrCapacityExceeded
}

// occupy marks an acquired record live. Caller holds rec.mu.
func (t *slotTable) occupy(rec *record) {
	rec.occupied = true
	rec.active = true
	t.occupied.Add(1)
}

// release frees an occupied record. Caller holds rec.mu and has already
// destroyed the record's runtime resource.
func (t *slotTable) release(rec *record) {
	if rec.occupied {
		t.occupied.Add(-1)
	}
	rec.reset()
}

// get returns the record for id, occupied or not.
func (t *slotTable) get(id int) (*record, error) {
	if id < 0 || id >= len(t.records) {
		return nil, gferrors.ErrInvalidID
	}
	return &t.records[id], nil
}

// occupiedIDs snapshots the ids occupied at call time.
func (t *slotTable) occupiedIDs() []int {
	ids := make([]int, 0, t.occupied.Load())
	for i := range t.records {
		rec := &t.records[i]
		rec.mu.Lock()
		if rec.occupied {
			ids = append(ids, rec.id)
		}
		rec.mu.Unlock()
	}
	return ids
}

// close stops further allocation. A record already handed out by acquire
// is still committed or abandoned by its caller.
func (t *slotTable) close() {
	t.allocMu.Lock()
	t.closed = true
	t.allocMu.Unlock()
}
