package health

import "time"

// ClusterMetrics is a point-in-time snapshot of a cluster, fetched from the
// monitoring backend. Missing fields stay at their zero value; every scoring
// function tolerates partial data.
type ClusterMetrics struct {
	ClusterID      string    `json:"cluster_id"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	StoragePercent float64   `json:"storage_percent"`
	ReadyNodes     int       `json:"ready_nodes"`
	TotalNodes     int       `json:"total_nodes"`
	RunningPods    int       `json:"running_pods"`
	TotalPods      int       `json:"total_pods"`
	FailedPods     int       `json:"failed_pods"`
	PendingPods    int       `json:"pending_pods"`
	Status         string    `json:"status"`
	CollectedAt    time.Time `json:"collected_at"`
}

// Breakdown holds the per-category sub-scores, each in [0,100].
type Breakdown struct {
	Resources float64 `json:"resources"`
	Nodes     float64 `json:"nodes"`
	Pods      float64 `json:"pods"`
	Network   float64 `json:"network"`
}

// HealthScore is the composite health of a cluster. It is a pure projection
// of a metrics snapshot and carries no identity across recomputations.
type HealthScore struct {
	Overall   float64   `json:"overall"`
	Breakdown Breakdown `json:"breakdown"`
}

// Utilization thresholds and penalty factors. A resource sub-score loses
// penalty points for every percent of utilization above its threshold.
const (
	cpuThreshold     = 70.0
	cpuPenalty       = 3.0
	memoryThreshold  = 80.0
	memoryPenalty    = 2.5
	storageThreshold = 85.0
	storagePenalty   = 2.0
)

// Composite weights for the overall score.
const (
	weightResources = 0.30
	weightNodes     = 0.25
	weightPods      = 0.25
	weightNetwork   = 0.20
)

// Score computes the health breakdown for a metrics snapshot. It never
// panics: zero-value metrics produce a valid (degraded) score.
func Score(m ClusterMetrics) HealthScore {
	b := Breakdown{
		Resources: resourcesScore(m),
		Nodes:     ratioScore(m.ReadyNodes, m.TotalNodes),
		Pods:      ratioScore(m.RunningPods, m.TotalPods),
		Network:   networkScore(m.Status),
	}

	overall := b.Resources*weightResources +
		b.Nodes*weightNodes +
		b.Pods*weightPods +
		b.Network*weightNetwork

	return HealthScore{
		Overall:   clamp(overall),
		Breakdown: b,
	}
}

func resourcesScore(m ClusterMetrics) float64 {
	cpu := utilizationScore(m.CPUPercent, cpuThreshold, cpuPenalty)
	mem := utilizationScore(m.MemoryPercent, memoryThreshold, memoryPenalty)
	storage := utilizationScore(m.StoragePercent, storageThreshold, storagePenalty)
	return clamp((cpu + mem + storage) / 3)
}

func utilizationScore(percent, threshold, penalty float64) float64 {
	over := percent - threshold
	if over < 0 {
		over = 0
	}
	return clamp(100 - over*penalty)
}

// ratioScore returns ready/total as a percentage. An empty total scores 100
// so that a cluster reporting no objects yet does not drag the composite down.
func ratioScore(ready, total int) float64 {
	if total == 0 {
		return 100
	}
	return clamp(float64(ready) / float64(total) * 100)
}

// networkScore is a coarse mapping from the cluster's own reported status.
func networkScore(status string) float64 {
	switch status {
	case "healthy":
		return 100
	case "warning":
		return 75
	case "critical":
		return 40
	default:
		return 20
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
