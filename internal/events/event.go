package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what kind of cluster object an event refers to
type EventType string

const (
	TypePod      EventType = "pod"
	TypeNode     EventType = "node"
	TypeCluster  EventType = "cluster"
	TypeAlert    EventType = "alert"
	TypeResource EventType = "resource"

	// TypeAll is a filter wildcard, never present on an event itself
	TypeAll EventType = "all"
)

// EventAction describes what happened to the object
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionUpdated EventAction = "updated"
	ActionDeleted EventAction = "deleted"
	ActionError   EventAction = "error"
)

// EventSeverity defines the severity level. Empty means unclassified.
type EventSeverity string

const (
	SeverityCritical EventSeverity = "critical"
	SeverityError    EventSeverity = "error"
	SeverityWarning  EventSeverity = "warning"
	SeverityInfo     EventSeverity = "info"
)

// Event is the unit of data flowing through the engine. ID is unique per
// event instance within a connection session. Timestamp is producer-assigned
// and non-decreasing within a single physical connection; no ordering is
// guaranteed across reconnects (events lost while disconnected are not
// replayed).
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Action    EventAction     `json:"action"`
	ClusterID string          `json:"cluster_id,omitempty"`
	Severity  EventSeverity   `json:"severity,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode parses a raw wire frame into an Event. The payload under "data"
// stays opaque; consumers interpret it themselves.
func Decode(raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event missing id")
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event %s missing type", e.ID)
	}
	return &e, nil
}
