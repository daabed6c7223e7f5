package health

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// AlertSeverity defines the severity of a generated alert
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
	AlertInfo     AlertSeverity = "info"
)

// AlertType categorizes what subsystem an alert concerns
type AlertType string

const (
	AlertResource AlertType = "resource"
	AlertNode     AlertType = "node"
	AlertPod      AlertType = "pod"
	AlertSecurity AlertType = "security"
	AlertNetwork  AlertType = "network"
)

// Alert is a derived, ephemeral finding about a cluster. Its ID is computed
// from (cluster, rule), so re-evaluating an unchanged condition yields the
// same alert object and consumers can deduplicate without a diff pass.
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Type      AlertType     `json:"type"`
}

// Rule names, hashed into alert IDs. Renaming one changes alert identity.
const (
	ruleCPUCritical    = "cpu_critical"
	ruleCPUWarning     = "cpu_warning"
	ruleMemoryCritical = "memory_critical"
	ruleMemoryWarning  = "memory_warning"
	ruleNodesCritical  = "nodes_critical"
	ruleNodesWarning   = "nodes_warning"
	ruleFailedCritical = "failed_pods_critical"
	ruleFailedWarning  = "failed_pods_warning"
	rulePendingWarning = "pending_pods_warning"
)

// AlertID derives the deterministic alert identifier for a rule firing
// against a cluster.
func AlertID(clusterID, rule string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(clusterID+":"+rule))
}

// Alerts evaluates every threshold rule against the snapshot and returns all
// alerts that fire. Rules are independent: a cluster can have several
// simultaneous alerts. Missing metrics evaluate as zero and simply do not
// trip the corresponding rules.
func Alerts(m ClusterMetrics) []Alert {
	now := time.Now()
	alerts := make([]Alert, 0, 4)

	add := func(rule string, severity AlertSeverity, typ AlertType, message string) {
		alerts = append(alerts, Alert{
			ID:        AlertID(m.ClusterID, rule),
			Severity:  severity,
			Message:   message,
			Timestamp: now,
			Type:      typ,
		})
	}

	switch {
	case m.CPUPercent > 90:
		add(ruleCPUCritical, AlertCritical, AlertResource,
			fmt.Sprintf("CPU utilization critical: %.1f%%", m.CPUPercent))
	case m.CPUPercent > 80:
		add(ruleCPUWarning, AlertWarning, AlertResource,
			fmt.Sprintf("CPU utilization high: %.1f%%", m.CPUPercent))
	}

	switch {
	case m.MemoryPercent > 95:
		add(ruleMemoryCritical, AlertCritical, AlertResource,
			fmt.Sprintf("Memory utilization critical: %.1f%%", m.MemoryPercent))
	case m.MemoryPercent > 85:
		add(ruleMemoryWarning, AlertWarning, AlertResource,
			fmt.Sprintf("Memory utilization high: %.1f%%", m.MemoryPercent))
	}

	if m.TotalNodes > 0 {
		ratio := float64(m.ReadyNodes) / float64(m.TotalNodes)
		switch {
		case ratio < 0.8:
			add(ruleNodesCritical, AlertCritical, AlertNode,
				fmt.Sprintf("Only %d/%d nodes ready", m.ReadyNodes, m.TotalNodes))
		case ratio < 0.9:
			add(ruleNodesWarning, AlertWarning, AlertNode,
				fmt.Sprintf("%d/%d nodes ready", m.ReadyNodes, m.TotalNodes))
		}
	}

	switch {
	case m.FailedPods > 5:
		add(ruleFailedCritical, AlertCritical, AlertPod,
			fmt.Sprintf("%d pods in failed state", m.FailedPods))
	case m.FailedPods > 0:
		add(ruleFailedWarning, AlertWarning, AlertPod,
			fmt.Sprintf("%d pods in failed state", m.FailedPods))
	}

	if m.PendingPods > 10 {
		add(rulePendingWarning, AlertWarning, AlertPod,
			fmt.Sprintf("%d pods pending for scheduling", m.PendingPods))
	}

	return alerts
}
