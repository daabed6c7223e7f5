package bus

import (
	"log"
	"sync"

	"ClusterPulse/internal/events"
	"ClusterPulse/internal/metrics"

	"github.com/google/uuid"
)

// DefaultMaxEvents is the per-subscription log capacity when none is given.
const DefaultMaxEvents = 500

// Callback receives every matching event, synchronously, in delivery order.
type Callback func(*events.Event)

type subscription struct {
	id       string
	filter   events.Filter
	callback Callback
	log      *EventLog
}

// Registry is the subscription fan-out for the engine. One registry serves
// all consumers; every inbound event is dispatched once, to all matching
// subscriptions in registration order. Dispatch is synchronous: callbacks
// run on the connection's read goroutine and must not block.
type Registry struct {
	mu        sync.Mutex
	subs      []*subscription
	byID      map[string]*subscription
	maxEvents int
}

// NewRegistry creates a registry whose subscription logs hold up to
// maxEvents entries each.
func NewRegistry(maxEvents int) *Registry {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Registry{
		byID:      make(map[string]*subscription),
		maxEvents: maxEvents,
	}
}

// Subscribe registers a callback for events matching the filter and returns
// the subscription handle. The caller owns the handle and must Unsubscribe
// on teardown; nothing is cleaned up automatically.
func (r *Registry) Subscribe(filter events.Filter, cb Callback) string {
	sub := &subscription{
		id:       uuid.New().String(),
		filter:   filter,
		callback: cb,
		log:      NewEventLog(r.maxEvents),
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.byID[sub.id] = sub
	r.mu.Unlock()

	metrics.ActiveSubscriptions.Inc()
	return sub.id
}

// Unsubscribe removes a subscription. Unknown handles are a no-op. A
// dispatch pass already in flight may still deliver one final event to the
// removed callback; that is accepted by design of the snapshot iteration.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, sub := range r.subs {
		if sub.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			break
		}
	}
	metrics.ActiveSubscriptions.Dec()
}

// Dispatch delivers one inbound event to every matching subscription.
// The subscription list is snapshotted first, so callbacks are free to
// subscribe or unsubscribe without corrupting the iteration. A panicking
// callback is logged and does not stop delivery to the rest.
func (r *Registry) Dispatch(e *events.Event) {
	if e == nil {
		return
	}

	r.mu.Lock()
	snapshot := make([]*subscription, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.Unlock()

	for _, sub := range snapshot {
		if !sub.filter.Matches(e) {
			continue
		}
		r.invoke(sub, e)
		sub.log.Append(e)
	}
}

func (r *Registry) invoke(sub *subscription, e *events.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.CallbackPanics.Inc()
			log.Printf("Subscription %s callback panicked on event %s: %v", sub.id, e.ID, rec)
		}
	}()

	metrics.CallbacksInvoked.Inc()
	sub.callback(e)
}

// Events returns the subscription's log, newest first. Unknown handles
// return nil.
func (r *Registry) Events(id string) []*events.Event {
	if l := r.logFor(id); l != nil {
		return l.Events()
	}
	return nil
}

// EventsByType returns the subscription's logged events of one type.
func (r *Registry) EventsByType(id string, t events.EventType) []*events.Event {
	if l := r.logFor(id); l != nil {
		return l.ByType(t)
	}
	return nil
}

// EventsBySeverity returns the subscription's logged events of one severity.
func (r *Registry) EventsBySeverity(id string, s events.EventSeverity) []*events.Event {
	if l := r.logFor(id); l != nil {
		return l.BySeverity(s)
	}
	return nil
}

// ClearEvents drops the subscription's log.
func (r *Registry) ClearEvents(id string) {
	if l := r.logFor(id); l != nil {
		l.Clear()
	}
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) logFor(id string) *EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byID[id]; ok {
		return sub.log
	}
	return nil
}
