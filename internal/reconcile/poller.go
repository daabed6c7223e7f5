package reconcile

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultStatusInterval is how often the connection state is re-checked
	DefaultStatusInterval = 5 * time.Second

	// DefaultPollInterval is how often the focused cluster is refreshed
	// regardless of events
	DefaultPollInterval = 30 * time.Second
)

// Connector is the connection surface the poller drives. The connection
// manager satisfies it.
type Connector interface {
	IsConnected() bool
	Connect(ctx context.Context) error
}

// Refresher re-scores a cluster from a fresh snapshot. The reconciler
// satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, clusterID string)
}

// Poller is the level-triggered fallback beside the push path. It owns two
// loops: reconnecting the backend connection when it is down, and refreshing
// the focused cluster on a fixed interval so derived state converges even
// when events were lost while disconnected.
type Poller struct {
	conn           Connector
	refresher      Refresher
	focus          func() string
	statusInterval time.Duration
	pollInterval   time.Duration
}

// NewPoller creates a poller. focus reports the currently focused cluster
// (typically Debouncer.Focus); it may return empty when nothing is focused.
func NewPoller(conn Connector, refresher Refresher, focus func() string, statusInterval, pollInterval time.Duration) *Poller {
	if statusInterval <= 0 {
		statusInterval = DefaultStatusInterval
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Poller{
		conn:           conn,
		refresher:      refresher,
		focus:          focus,
		statusInterval: statusInterval,
		pollInterval:   pollInterval,
	}
}

// Run blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	statusTicker := time.NewTicker(p.statusInterval)
	defer statusTicker.Stop()

	pollTicker := time.NewTicker(p.pollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping poller")
			return

		case <-statusTicker.C:
			if !p.conn.IsConnected() {
				if err := p.conn.Connect(ctx); err != nil {
					log.Printf("Reconnect attempt failed: %v", err)
				}
			}

		case <-pollTicker.C:
			if cluster := p.focus(); cluster != "" {
				p.refresher.Refresh(ctx, cluster)
			}
		}
	}
}
