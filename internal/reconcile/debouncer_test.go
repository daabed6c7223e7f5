package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ClusterPulse/internal/bus"
	"ClusterPulse/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recomputeCall struct {
	cluster string
	changed Categories
}

type fakeRecomputer struct {
	mu    sync.Mutex
	calls []recomputeCall
}

func (f *fakeRecomputer) Recompute(_ context.Context, clusterID string, changed Categories) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recomputeCall{cluster: clusterID, changed: changed})
}

func (f *fakeRecomputer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRecomputer) last() recomputeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeRecomputer) all() []recomputeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recomputeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func event(id string, t events.EventType, cluster string) *events.Event {
	return &events.Event{ID: id, Type: t, ClusterID: cluster, Timestamp: time.Now()}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 20 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")

	// A burst well inside the debounce window
	for i := 0; i < 25; i++ {
		registry.Dispatch(event(fmt.Sprintf("e%d", i), events.TypePod, "c1"))
	}

	require.Eventually(t, func() bool { return rec.count() > 0 }, time.Second, 2*time.Millisecond)

	// Let another full window elapse: still exactly one recomputation
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	call := rec.last()
	assert.Equal(t, "c1", call.cluster)
	assert.Equal(t, Categories{Pod: true}, call.changed)
}

func TestDebouncer_CategoryFlags(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 15 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")

	registry.Dispatch(event("e1", events.TypeNode, "c1"))
	registry.Dispatch(event("e2", events.TypeResource, "c1"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, Categories{Node: true, Resource: true}, rec.last().changed)
}

func TestDebouncer_IgnoresOtherClusters(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 10 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")

	registry.Dispatch(event("e1", events.TypePod, "c2"))
	registry.Dispatch(event("e2", events.TypeAlert, "c1")) // alert events are not reconciliation input

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestDebouncer_FocusSwitchCancelsPending(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 30 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")
	registry.Dispatch(event("e1", events.TypePod, "c1"))

	// Switch focus before the timer fires: c1's recomputation must not run
	d.SetFocus("c2")

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.count())

	// The new focus works normally
	registry.Dispatch(event("e2", events.TypeNode, "c2"))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, "c2", rec.last().cluster)
}

func TestDebouncer_TimerResetsOnNewEvent(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 40 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")

	// Keep poking inside the window; nothing may fire while the burst lasts
	for i := 0; i < 5; i++ {
		registry.Dispatch(event(fmt.Sprintf("e%d", i), events.TypePod, "c1"))
		time.Sleep(15 * time.Millisecond)
	}
	assert.Zero(t, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 2*time.Millisecond)
}

func TestDebouncer_StaleEventsProduceNoCategoryFlags(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{
		Debounce:      10 * time.Millisecond,
		RecencyWindow: 50 * time.Millisecond,
	})
	defer d.Stop()

	d.SetFocus("c1")

	stale := event("e1", events.TypePod, "c1")
	stale.Timestamp = time.Now().Add(-time.Minute)
	registry.Dispatch(stale)

	// The recomputation still fires, with no category marked recent
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, Categories{}, rec.last().changed)
}

func TestDebouncer_EmptyFocusIsIdle(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 10 * time.Millisecond})
	defer d.Stop()

	d.SetFocus("c1")
	d.SetFocus("")
	assert.Empty(t, d.Focus())
	assert.Zero(t, registry.Len())

	registry.Dispatch(event("e1", events.TypePod, "c1"))
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestDebouncer_EventAtWindowBoundaryNeverFiresEmpty(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	debounce := 5 * time.Millisecond
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: debounce})
	defer d.Stop()

	d.SetFocus("c1")

	// Dispatch a second fresh event right as the window expires. However
	// the timer expiry and the re-arm interleave, every recomputation
	// must carry the category of at least one fresh event; a fire with
	// empty categories would mean a stale timer consumed nothing.
	for i := 0; i < 200; i++ {
		registry.Dispatch(event(fmt.Sprintf("a%d", i), events.TypePod, "c1"))
		time.Sleep(debounce)
		registry.Dispatch(event(fmt.Sprintf("b%d", i), events.TypeNode, "c1"))
		time.Sleep(3 * debounce)
	}

	require.Greater(t, rec.count(), 0)
	for _, call := range rec.all() {
		assert.True(t, call.changed.Any(),
			"recompute fired with no categories although every event was fresh")
	}
}

func TestDebouncer_StopDetaches(t *testing.T) {
	registry := bus.NewRegistry(100)
	rec := &fakeRecomputer{}
	d := NewDebouncer(registry, rec, DebouncerConfig{Debounce: 10 * time.Millisecond})

	d.SetFocus("c1")
	registry.Dispatch(event("e1", events.TypePod, "c1"))
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Zero(t, registry.Len())
}
