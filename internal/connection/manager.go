package connection

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ClusterPulse/internal/bus"
	"ClusterPulse/internal/events"
	"ClusterPulse/internal/metrics"
)

// State represents the current state of the backend connection.
type State string

const (
	// StateDisconnected indicates no connection is established.
	StateDisconnected State = "disconnected"

	// StateConnecting indicates a connection attempt is in flight.
	StateConnecting State = "connecting"

	// StateConnected indicates the connection is established and events flow.
	StateConnected State = "connected"

	// StateError indicates the last connection attempt or session failed.
	StateError State = "error"
)

// Source is a transport capable of delivering the backend's raw event feed.
// Connect dials and returns a channel of raw frames; the channel closes when
// the underlying connection is lost.
type Source interface {
	Connect(ctx context.Context) (<-chan []byte, error)
	Close() error
}

// Status is a point-in-time snapshot of the connection.
type Status struct {
	State       State     `json:"state"`
	Error       string    `json:"error,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
	LastEventAt time.Time `json:"last_event_at,omitempty"`
	EventCount  int64     `json:"event_count"`
}

// Manager owns the single physical connection to the monitoring backend.
// Exactly one Manager exists per process; every consumer shares it through
// the subscription registry and never touches the transport directly.
//
// The manager does not retry on its own. On connection loss it transitions
// to disconnected and stays there until something calls Connect again —
// reconnection is level-triggered polling (see reconcile.Poller), which
// keeps retry policy out of the transport primitive and avoids retry storms
// when the backend is down.
//
// Events received while disconnected are not replayed by the backend; the
// periodic snapshot poll closes that eventual-consistency gap.
type Manager struct {
	source   Source
	registry *bus.Registry

	mu         sync.Mutex
	state      State
	lastErr    string
	generation int
	connected  time.Time
	lastEvent  time.Time
	eventCount int64
}

// NewManager creates a manager reading from the given source and
// dispatching into the given registry. The initial state is disconnected.
func NewManager(source Source, registry *bus.Registry) *Manager {
	m := &Manager{
		source:   source,
		registry: registry,
		state:    StateDisconnected,
	}
	metrics.ConnectionState.Set(stateValue(StateDisconnected))
	return m
}

// Connect establishes the physical connection. It is idempotent: when the
// manager is already connected or connecting it returns immediately with no
// side effects. On failure the state moves to error and the error is
// returned; it is never thrown into subscriber callbacks.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateConnecting, "")
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	metrics.ConnectAttempts.Inc()

	msgs, err := m.source.Connect(ctx)
	if err != nil {
		m.mu.Lock()
		if gen == m.generation && m.state == StateConnecting {
			m.setStateLocked(StateError, err.Error())
		}
		m.mu.Unlock()
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.mu.Lock()
	// Disconnect may have run while the handshake was in flight; it must
	// win, not be clobbered by a late-arriving session.
	if gen != m.generation || m.state != StateConnecting {
		m.mu.Unlock()
		m.source.Close()
		return nil
	}
	m.setStateLocked(StateConnected, "")
	m.connected = time.Now()
	m.mu.Unlock()

	go m.readLoop(gen, msgs)

	log.Printf("Connected to backend event stream")
	return nil
}

// Disconnect tears down the physical connection. Safe to call when already
// disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateDisconnected, "")
	m.mu.Unlock()

	if err := m.source.Close(); err != nil {
		log.Printf("Error closing connection: %v", err)
	}
}

// IsConnected reports whether the connection is currently established.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:       m.state,
		Error:       m.lastErr,
		ConnectedAt: m.connected,
		LastEventAt: m.lastEvent,
		EventCount:  m.eventCount,
	}
}

// readLoop decodes frames into events and hands them to the registry. It
// runs until the message channel closes. Malformed frames are dropped and
// logged, never propagated to subscribers.
func (m *Manager) readLoop(gen int, msgs <-chan []byte) {
	for raw := range msgs {
		e, err := events.Decode(raw)
		if err != nil {
			metrics.EventsMalformed.Inc()
			log.Printf("Dropping malformed event: %v", err)
			continue
		}

		m.mu.Lock()
		m.lastEvent = time.Now()
		m.eventCount++
		m.mu.Unlock()

		metrics.EventsReceived.WithLabelValues(string(e.Type)).Inc()
		m.registry.Dispatch(e)
	}

	// Channel closed: unexpected loss unless Disconnect already ran or a
	// newer session has taken over.
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.generation && m.state == StateConnected {
		m.setStateLocked(StateDisconnected, "connection lost")
		metrics.ConnectionDrops.Inc()
		log.Printf("Backend event stream closed")
	}
}

func (m *Manager) setStateLocked(s State, errMsg string) {
	m.state = s
	m.lastErr = errMsg
	metrics.ConnectionState.Set(stateValue(s))
}

func stateValue(s State) float64 {
	switch s {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	case StateError:
		return 3
	default:
		return 0
	}
}
