package reconcile

import (
	"context"
	"sync"
	"time"

	"ClusterPulse/internal/bus"
	"ClusterPulse/internal/events"
	"ClusterPulse/internal/metrics"
)

const (
	// DefaultDebounce is how long a burst must be quiet before recomputing
	DefaultDebounce = time.Second

	// DefaultRecencyWindow bounds which accumulated events count as recent
	DefaultRecencyWindow = 30 * time.Second

	// recomputeTimeout bounds one recomputation (it may fetch over HTTP)
	recomputeTimeout = 15 * time.Second
)

// Recomputer is the debouncer's output: one call per settled burst.
type Recomputer interface {
	Recompute(ctx context.Context, clusterID string, changed Categories)
}

// DebouncerConfig tunes the debounce state machine.
type DebouncerConfig struct {
	Debounce      time.Duration
	RecencyWindow time.Duration
}

// Debouncer converts the bursty event stream for one focused cluster into a
// low-frequency stream of recompute calls. Per focused cluster it is a
// small state machine: idle -> pending(timer) -> fired -> idle. A new
// relevant event resets the pending timer; changing focus cancels it and
// drops whatever accumulated.
type Debouncer struct {
	registry *bus.Registry
	rec      Recomputer
	debounce time.Duration
	recency  time.Duration

	mu      sync.Mutex
	focused string
	subID   string
	timer   *time.Timer
	armSeq  uint64
	pending []*events.Event
}

// NewDebouncer creates a debouncer wired to the registry. No events flow
// until SetFocus selects a cluster.
func NewDebouncer(registry *bus.Registry, rec Recomputer, cfg DebouncerConfig) *Debouncer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = DefaultRecencyWindow
	}
	return &Debouncer{
		registry: registry,
		rec:      rec,
		debounce: cfg.Debounce,
		recency:  cfg.RecencyWindow,
	}
}

// SetFocus switches the focused cluster. Any pending timer is cancelled and
// accumulated events for the previous cluster are dropped; no recomputation
// fires for a no-longer-focused cluster. An empty id returns to idle.
func (d *Debouncer) SetFocus(clusterID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if clusterID == d.focused {
		return
	}

	d.cancelLocked()
	if d.subID != "" {
		d.registry.Unsubscribe(d.subID)
		d.subID = ""
	}

	d.focused = clusterID
	if clusterID == "" {
		return
	}

	d.subID = d.registry.Subscribe(events.Filter{
		Types: []events.EventType{
			events.TypeCluster,
			events.TypeNode,
			events.TypePod,
			events.TypeResource,
		},
		ClusterID: clusterID,
	}, d.onEvent)
}

// Focus returns the currently focused cluster, empty when idle.
func (d *Debouncer) Focus() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// Stop cancels any pending timer and detaches from the registry.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	if d.subID != "" {
		d.registry.Unsubscribe(d.subID)
		d.subID = ""
	}
	d.focused = ""
}

// onEvent accumulates a relevant event and (re)arms the debounce timer.
func (d *Debouncer) onEvent(e *events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.focused == "" || e.ClusterID != d.focused {
		return
	}

	d.pending = append(d.pending, e)

	if d.timer != nil {
		d.timer.Stop()
	}
	// Each arming gets a sequence number so a timer that already fired
	// (Stop returned false) cannot race a fresh arming: the stale fire
	// sees a mismatched sequence and bails.
	d.armSeq++
	seq := d.armSeq
	cluster := d.focused
	d.timer = time.AfterFunc(d.debounce, func() {
		d.fire(cluster, seq)
	})
}

// fire runs when the burst has settled. It classifies the recent events by
// category and triggers exactly one recomputation. Even when every
// accumulated event has aged out of the recency window the recomputation
// still runs; the category flags just come out unset.
func (d *Debouncer) fire(cluster string, seq uint64) {
	d.mu.Lock()
	if cluster != d.focused || seq != d.armSeq {
		// Focus switched, or a newer event re-armed the window while
		// this fire was already in flight
		d.mu.Unlock()
		return
	}

	cutoff := time.Now().Add(-d.recency)
	var changed Categories
	for _, e := range d.pending {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		switch e.Type {
		case events.TypeCluster:
			changed.Cluster = true
		case events.TypeNode:
			changed.Node = true
		case events.TypePod:
			changed.Pod = true
		case events.TypeResource:
			changed.Resource = true
		}
	}
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	metrics.DebounceFires.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()
	d.rec.Recompute(ctx, cluster, changed)
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armSeq++
	d.pending = nil
}
