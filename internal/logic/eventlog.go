package logic

import "iter"

// DefaultLogCapacity is the number of events kept for pollers that reconnect
// after a connection loss. It is what fits in the exposed history buffer.
const DefaultLogCapacity = 20

// EventLog is a fixed-capacity history of zone events, most recent first.
// Recording into a full log evicts the oldest event.
// Not safe for concurrent use — caller must synchronize.
type EventLog struct {
	buf   []ZoneEvent
	head  int // next write position
	count int
}

// NewEventLog creates an empty log holding at most capacity events.
// A capacity below 1 is treated as 1.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{buf: make([]ZoneEvent, capacity)}
}

// Record inserts ev at the front of the log.
func (l *EventLog) Record(ev ZoneEvent) {
	// When full, head already points at the oldest entry.
	l.buf[l.head] = ev
	l.head = (l.head + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// All returns the events most recent first. Each call iterates over a
// snapshot taken at call time.
func (l *EventLog) All() iter.Seq[ZoneEvent] {
	snap := l.Snapshot()
	return func(yield func(ZoneEvent) bool) {
		for _, ev := range snap {
			if !yield(ev) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the events, most recent first.
func (l *EventLog) Snapshot() []ZoneEvent {
	out := make([]ZoneEvent, l.count)
	n := len(l.buf)
	for i := 0; i < l.count; i++ {
		out[i] = l.buf[(l.head-1-i+n)%n]
	}
	return out
}

// Front returns the most recent event.
func (l *EventLog) Front() (ZoneEvent, bool) {
	if l.count == 0 {
		return ZoneEvent{}, false
	}
	n := len(l.buf)
	return l.buf[(l.head-1+n)%n], true
}

// Len returns the number of events held.
func (l *EventLog) Len() int {
	return l.count
}

// Cap returns the maximum number of events held.
func (l *EventLog) Cap() int {
	return len(l.buf)
}
