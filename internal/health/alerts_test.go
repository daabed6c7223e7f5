package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertIDs(alerts []Alert) map[string]bool {
	ids := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		ids[a.ID] = true
	}
	return ids
}

func TestAlerts_ThresholdRules(t *testing.T) {
	tests := []struct {
		name         string
		metrics      ClusterMetrics
		wantSeverity map[AlertSeverity]int
		wantTypes    []AlertType
	}{
		{
			name:         "healthy cluster has no alerts",
			metrics:      ClusterMetrics{CPUPercent: 50, MemoryPercent: 60, ReadyNodes: 10, TotalNodes: 10},
			wantSeverity: map[AlertSeverity]int{},
		},
		{
			name:         "cpu critical",
			metrics:      ClusterMetrics{CPUPercent: 95},
			wantSeverity: map[AlertSeverity]int{AlertCritical: 1},
			wantTypes:    []AlertType{AlertResource},
		},
		{
			name:         "cpu warning band is exclusive of critical",
			metrics:      ClusterMetrics{CPUPercent: 85},
			wantSeverity: map[AlertSeverity]int{AlertWarning: 1},
			wantTypes:    []AlertType{AlertResource},
		},
		{
			name:         "memory boundary 95 is warning not critical",
			metrics:      ClusterMetrics{MemoryPercent: 95},
			wantSeverity: map[AlertSeverity]int{AlertWarning: 1},
		},
		{
			name:         "node ratio below 0.8 is critical",
			metrics:      ClusterMetrics{ReadyNodes: 7, TotalNodes: 10},
			wantSeverity: map[AlertSeverity]int{AlertCritical: 1},
			wantTypes:    []AlertType{AlertNode},
		},
		{
			name:         "node ratio in warning band",
			metrics:      ClusterMetrics{ReadyNodes: 17, TotalNodes: 20},
			wantSeverity: map[AlertSeverity]int{AlertWarning: 1},
			wantTypes:    []AlertType{AlertNode},
		},
		{
			name:         "failed pods above 5 is critical",
			metrics:      ClusterMetrics{FailedPods: 6, ReadyNodes: 1, TotalNodes: 1},
			wantSeverity: map[AlertSeverity]int{AlertCritical: 1},
			wantTypes:    []AlertType{AlertPod},
		},
		{
			name:         "single failed pod is warning",
			metrics:      ClusterMetrics{FailedPods: 1, ReadyNodes: 1, TotalNodes: 1},
			wantSeverity: map[AlertSeverity]int{AlertWarning: 1},
		},
		{
			name:         "pending pods above 10",
			metrics:      ClusterMetrics{PendingPods: 11, ReadyNodes: 1, TotalNodes: 1},
			wantSeverity: map[AlertSeverity]int{AlertWarning: 1},
			wantTypes:    []AlertType{AlertPod},
		},
		{
			name: "multiple simultaneous alerts",
			metrics: ClusterMetrics{
				CPUPercent:    95,
				MemoryPercent: 96,
				ReadyNodes:    5,
				TotalNodes:    10,
				FailedPods:    8,
				PendingPods:   20,
			},
			wantSeverity: map[AlertSeverity]int{AlertCritical: 4, AlertWarning: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := Alerts(tt.metrics)

			got := map[AlertSeverity]int{}
			for _, a := range alerts {
				got[a.Severity]++
			}
			assert.Equal(t, tt.wantSeverity, got)

			for _, wantType := range tt.wantTypes {
				found := false
				for _, a := range alerts {
					if a.Type == wantType {
						found = true
					}
				}
				assert.True(t, found, "expected an alert of type %s", wantType)
			}
		})
	}
}

func TestAlerts_TypicalDegradedCluster(t *testing.T) {
	m := ClusterMetrics{
		ClusterID:      "prod-east",
		CPUPercent:     95,
		MemoryPercent:  70,
		StoragePercent: 50,
		ReadyNodes:     8,
		TotalNodes:     10,
		RunningPods:    90,
		TotalPods:      100,
		Status:         "warning",
	}

	alerts := Alerts(m)
	require.Len(t, alerts, 2)

	// Exactly one critical resource alert (cpu>90); the 8/10 node ratio
	// sits on the warning band boundary
	var criticals, nodeWarnings int
	for _, a := range alerts {
		if a.Severity == AlertCritical {
			criticals++
			assert.Equal(t, AlertResource, a.Type)
		}
		if a.Severity == AlertWarning && a.Type == AlertNode {
			nodeWarnings++
		}
	}
	assert.Equal(t, 1, criticals)
	assert.Equal(t, 1, nodeWarnings)
}

func TestAlerts_DeterministicIdentity(t *testing.T) {
	m := ClusterMetrics{
		ClusterID:     "prod-east",
		CPUPercent:    95,
		MemoryPercent: 96,
		ReadyNodes:    5,
		TotalNodes:    10,
		FailedPods:    3,
	}

	first := Alerts(m)
	second := Alerts(m)

	require.NotEmpty(t, first)
	assert.Equal(t, alertIDs(first), alertIDs(second))
}

func TestAlerts_IdentityScopedByCluster(t *testing.T) {
	a := Alerts(ClusterMetrics{ClusterID: "east", CPUPercent: 95})
	b := Alerts(ClusterMetrics{ClusterID: "west", CPUPercent: 95})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ID, b[0].ID)
}

func TestAlertID_Stable(t *testing.T) {
	assert.Equal(t, AlertID("c1", "cpu_critical"), AlertID("c1", "cpu_critical"))
	assert.NotEqual(t, AlertID("c1", "cpu_critical"), AlertID("c1", "cpu_warning"))
}
