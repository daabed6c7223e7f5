package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ClusterPulse/internal/health"
)

// MetricsClient calls the monitoring backend's REST API. The engine only
// consumes two endpoints: the point-in-time metrics snapshot (the sole
// input to health scoring) and the out-of-band sync trigger.
type MetricsClient struct {
	baseURL string
	client  *http.Client
}

// NewMetricsClient creates a client for the backend REST API.
func NewMetricsClient(baseURL string) *MetricsClient {
	return &MetricsClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchMetrics returns the current metrics snapshot for a cluster.
func (c *MetricsClient) FetchMetrics(ctx context.Context, clusterID string) (*health.ClusterMetrics, error) {
	url := fmt.Sprintf("%s/api/v1/clusters/%s/metrics", c.baseURL, clusterID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics request returned %d", resp.StatusCode)
	}

	var m health.ClusterMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	if m.ClusterID == "" {
		m.ClusterID = clusterID
	}
	return &m, nil
}

// TriggerSync asks the backend to refresh cluster state out-of-band.
func (c *MetricsClient) TriggerSync(ctx context.Context, clusterID string) error {
	url := fmt.Sprintf("%s/api/v1/clusters/%s/sync", c.baseURL, clusterID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sync request returned %d", resp.StatusCode)
	}
	return nil
}
