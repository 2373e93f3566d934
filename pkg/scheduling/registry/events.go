package registry

import "time"

// EventKind identifies a lifecycle transition.
type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
	EventPaused
	EventResumed
	EventPendingRemoved
	EventFired
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventPendingRemoved:
		return "pending-removed"
	case EventFired:
		return "fired"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a state change of one slot.
type Event struct {
	Kind EventKind
	ID   int
	Name string
	At   time.Time

	// Set for EventFired and EventFailed.
	Duration time.Duration
	Err      error
}

// EventSink receives lifecycle events synchronously, after the state change
// and while the slot's lock is held, so a slot's events arrive in order and
// never after its next Added. Implementations must not call back into the
// registry and should return quickly.
type EventSink interface {
	OnEvent(e Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(e Event)

// OnEvent implements EventSink.
func (f SinkFunc) OnEvent(e Event) {
	f(e)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// OnEvent implements EventSink.
func (m MultiSink) OnEvent(e Event) {
	for _, s := range m {
		if s != nil {
			s.OnEvent(e)
		}
	}
}
