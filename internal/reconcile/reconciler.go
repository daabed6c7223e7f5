package reconcile

import (
	"context"
	"log"
	"sync"

	"ClusterPulse/internal/health"
	"ClusterPulse/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Categories flags which kinds of events arrived since the last
// recomputation. The full score is always recomputed (overall depends on
// every sub-score); the flags decide whether a fresh metrics fetch is
// warranted.
type Categories struct {
	Cluster  bool
	Node     bool
	Pod      bool
	Resource bool
}

// Any reports whether at least one category changed.
func (c Categories) Any() bool {
	return c.Cluster || c.Node || c.Pod || c.Resource
}

// MetricsFetcher fetches a point-in-time metrics snapshot from the backend.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, clusterID string) (*health.ClusterMetrics, error)
}

// SnapshotCache stores the latest known snapshot per cluster.
type SnapshotCache interface {
	Get(ctx context.Context, clusterID string) (*health.ClusterMetrics, error)
	Put(ctx context.Context, m health.ClusterMetrics) error
}

// AlertSink receives the alerts produced by a recomputation.
type AlertSink interface {
	PublishAlerts(ctx context.Context, clusterID string, alerts []health.Alert) error
}

// Reconciler turns metrics snapshots into health scores and alerts and
// holds the latest result per cluster for the API. Both the debounced event
// path and the periodic poll fallback funnel into the same recompute entry
// point, so either input can be disabled without touching the engine.
//
// Fetcher, cache and sink are all optional: with none of them set the
// reconciler still produces a (degraded) score from zero-value metrics
// rather than failing.
type Reconciler struct {
	fetcher MetricsFetcher
	cache   SnapshotCache
	sink    AlertSink

	mu     sync.RWMutex
	scores map[string]health.HealthScore
	alerts map[string][]health.Alert
}

// NewReconciler creates a reconciler. Any dependency may be nil.
func NewReconciler(fetcher MetricsFetcher, cache SnapshotCache, sink AlertSink) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		cache:   cache,
		sink:    sink,
		scores:  make(map[string]health.HealthScore),
		alerts:  make(map[string][]health.Alert),
	}
}

// Recompute is the debounced entry point. A fresh fetch happens only when
// some category actually changed; otherwise the cached snapshot is scored
// as-is.
func (r *Reconciler) Recompute(ctx context.Context, clusterID string, changed Categories) {
	r.recompute(ctx, clusterID, changed.Any())
}

// Refresh is the polling entry point: always fetch a fresh snapshot.
func (r *Reconciler) Refresh(ctx context.Context, clusterID string) {
	r.recompute(ctx, clusterID, true)
}

// LatestScore returns the most recently computed score for a cluster.
func (r *Reconciler) LatestScore(clusterID string) (health.HealthScore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	score, ok := r.scores[clusterID]
	return score, ok
}

// LatestAlerts returns the most recently generated alerts for a cluster.
func (r *Reconciler) LatestAlerts(clusterID string) []health.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alerts[clusterID]
}

func (r *Reconciler) recompute(ctx context.Context, clusterID string, refetch bool) {
	timer := prometheus.NewTimer(metrics.RecomputeDuration)
	defer timer.ObserveDuration()

	m := r.snapshot(ctx, clusterID, refetch)

	score := health.Score(*m)
	alerts := health.Alerts(*m)

	r.mu.Lock()
	r.scores[clusterID] = score
	r.alerts[clusterID] = alerts
	r.mu.Unlock()

	r.publishMetrics(clusterID, score, alerts)

	if r.sink != nil {
		if err := r.sink.PublishAlerts(ctx, clusterID, alerts); err != nil {
			log.Printf("Failed to publish alerts for %s: %v", clusterID, err)
		}
	}
}

// snapshot resolves the metrics to score: freshly fetched when requested
// and possible, otherwise the cached copy, otherwise zero values. It never
// returns nil.
func (r *Reconciler) snapshot(ctx context.Context, clusterID string, refetch bool) *health.ClusterMetrics {
	if refetch && r.fetcher != nil {
		m, err := r.fetcher.FetchMetrics(ctx, clusterID)
		if err != nil {
			log.Printf("Metrics fetch failed for %s, falling back to cache: %v", clusterID, err)
		} else if m != nil {
			if r.cache != nil {
				if err := r.cache.Put(ctx, *m); err != nil {
					log.Printf("Failed to cache snapshot for %s: %v", clusterID, err)
				}
			}
			return m
		}
	}

	if r.cache != nil {
		m, err := r.cache.Get(ctx, clusterID)
		if err != nil {
			log.Printf("Snapshot cache read failed for %s: %v", clusterID, err)
		} else if m != nil {
			return m
		}
	}

	return &health.ClusterMetrics{ClusterID: clusterID}
}

func (r *Reconciler) publishMetrics(clusterID string, score health.HealthScore, alerts []health.Alert) {
	metrics.HealthScore.WithLabelValues(clusterID).Set(score.Overall)
	metrics.HealthSubScore.WithLabelValues(clusterID, "resources").Set(score.Breakdown.Resources)
	metrics.HealthSubScore.WithLabelValues(clusterID, "nodes").Set(score.Breakdown.Nodes)
	metrics.HealthSubScore.WithLabelValues(clusterID, "pods").Set(score.Breakdown.Pods)
	metrics.HealthSubScore.WithLabelValues(clusterID, "network").Set(score.Breakdown.Network)

	counts := map[health.AlertSeverity]int{
		health.AlertCritical: 0,
		health.AlertWarning:  0,
		health.AlertInfo:     0,
	}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	for severity, n := range counts {
		metrics.ActiveAlerts.WithLabelValues(clusterID, string(severity)).Set(float64(n))
	}
}
