package bus

import (
	"sync"

	"ClusterPulse/internal/events"
)

// EventLog is a fixed-capacity event history for one subscription. It has
// ring buffer semantics: appending past capacity evicts the oldest entry.
// Reads return newest-first copies and never consume.
type EventLog struct {
	mu   sync.RWMutex
	buf  []*events.Event
	next int
	size int
}

// NewEventLog creates a log holding at most capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultMaxEvents
	}
	return &EventLog{
		buf: make([]*events.Event, capacity),
	}
}

// Append records an event, evicting the oldest entry when full.
func (l *EventLog) Append(e *events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
}

// Events returns all logged events, newest first.
func (l *EventLog) Events() []*events.Event {
	return l.filter(func(*events.Event) bool { return true })
}

// ByType returns logged events of the given type, newest first.
func (l *EventLog) ByType(t events.EventType) []*events.Event {
	return l.filter(func(e *events.Event) bool { return e.Type == t })
}

// BySeverity returns logged events of the given severity, newest first.
func (l *EventLog) BySeverity(s events.EventSeverity) []*events.Event {
	return l.filter(func(e *events.Event) bool { return e.Severity == s })
}

// Len returns the number of logged events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Clear drops all logged events.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = 0
	l.size = 0
	for i := range l.buf {
		l.buf[i] = nil
	}
}

func (l *EventLog) filter(keep func(*events.Event) bool) []*events.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*events.Event, 0, l.size)
	// Walk backwards from the most recent write
	for i := 0; i < l.size; i++ {
		idx := (l.next - 1 - i + len(l.buf)*2) % len(l.buf)
		if e := l.buf[idx]; e != nil && keep(e) {
			out = append(out, e)
		}
	}
	return out
}
