package events

// Filter selects which events a subscription receives. All three clauses are
// optional and combine with AND:
//   - Types: event type must be in the set, or the set contains TypeAll.
//     An empty set matches nothing.
//   - ClusterID: when set, the event's cluster must match exactly.
//   - Predicate: when set, must return true for the event.
type Filter struct {
	Types     []EventType
	ClusterID string
	Predicate func(*Event) bool
}

// All returns a filter matching every event.
func All() Filter {
	return Filter{Types: []EventType{TypeAll}}
}

// ForCluster returns a wildcard-type filter scoped to one cluster.
func ForCluster(clusterID string) Filter {
	return Filter{Types: []EventType{TypeAll}, ClusterID: clusterID}
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e *Event) bool {
	if e == nil {
		return false
	}
	if !f.matchesType(e.Type) {
		return false
	}
	if f.ClusterID != "" && f.ClusterID != e.ClusterID {
		return false
	}
	if f.Predicate != nil && !f.Predicate(e) {
		return false
	}
	return true
}

func (f Filter) matchesType(t EventType) bool {
	for _, ft := range f.Types {
		if ft == TypeAll || ft == t {
			return true
		}
	}
	return false
}
