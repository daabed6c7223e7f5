package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived is the total number of events decoded from the backend connection
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterpulse_events_received_total",
			Help: "Total number of events received from the backend connection",
		},
		[]string{"type"},
	)

	// EventsMalformed is the total number of inbound frames dropped as undecodable
	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_events_malformed_total",
			Help: "Total number of inbound frames dropped because they could not be decoded",
		},
	)

	// CallbacksInvoked is the total number of subscription callback invocations
	CallbacksInvoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_callbacks_invoked_total",
			Help: "Total number of subscription callback invocations",
		},
	)

	// CallbackPanics is the total number of subscription callbacks recovered from panic
	CallbackPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_callback_panics_total",
			Help: "Total number of subscription callbacks recovered from panic",
		},
	)

	// ActiveSubscriptions is the current number of registered subscriptions
	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clusterpulse_active_subscriptions",
			Help: "Current number of registered subscriptions",
		},
	)
)

// Connection metrics
var (
	// ConnectionState is the current connection state (0=disconnected, 1=connecting, 2=connected, 3=error)
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clusterpulse_connection_state",
			Help: "Current backend connection state (0=disconnected, 1=connecting, 2=connected, 3=error)",
		},
	)

	// ConnectAttempts is the total number of physical connect attempts
	ConnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_connect_attempts_total",
			Help: "Total number of physical connect attempts",
		},
	)

	// ConnectionDrops is the total number of unexpected connection losses
	ConnectionDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_connection_drops_total",
			Help: "Total number of unexpected connection losses",
		},
	)
)

// Reconciliation metrics
var (
	// DebounceFires is the total number of debounced recomputations
	DebounceFires = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_debounce_fires_total",
			Help: "Total number of debounced health recomputations",
		},
	)

	// RecomputeDuration is the time spent in one health recomputation
	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpulse_recompute_duration_seconds",
			Help:    "Time spent recomputing health score and alerts",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HealthScore is the latest overall health score per cluster
	HealthScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clusterpulse_health_score",
			Help: "Latest overall health score for a cluster (0-100)",
		},
		[]string{"cluster"},
	)

	// HealthSubScore is the latest health sub-score per cluster and category
	HealthSubScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clusterpulse_health_sub_score",
			Help: "Latest health sub-score for a cluster (0-100)",
		},
		[]string{"cluster", "category"},
	)

	// ActiveAlerts is the latest number of generated alerts per cluster and severity
	ActiveAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clusterpulse_active_alerts",
			Help: "Number of alerts generated by the latest recomputation",
		},
		[]string{"cluster", "severity"},
	)
)

// Publisher metrics
var (
	// AlertsPublished is the total number of alerts published downstream
	AlertsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_alerts_published_total",
			Help: "Total number of alerts published to the downstream stream",
		},
	)

	// AlertsDeduplicated is the total number of alerts suppressed by the dedup window
	AlertsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpulse_alerts_deduplicated_total",
			Help: "Total number of alerts suppressed by the dedup window",
		},
	)
)
