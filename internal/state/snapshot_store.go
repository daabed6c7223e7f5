package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ClusterPulse/internal/health"

	"github.com/go-redis/redis/v8"
)

// SnapshotStoreConfig holds snapshot store configuration
type SnapshotStoreConfig struct {
	Prefix string
	TTL    time.Duration
}

// SnapshotStore persists the latest known metrics snapshot per cluster in
// Redis. It buffers the reconciler against backend outages: a recomputation
// triggered while the metrics API is unreachable scores the cached snapshot
// instead of zero values. Entries expire so a long-dead cluster eventually
// reads as unknown rather than frozen-healthy.
type SnapshotStore struct {
	config SnapshotStoreConfig
	client *redis.Client
}

// NewSnapshotStore creates a SnapshotStore with the provided config and Redis client.
func NewSnapshotStore(cfg SnapshotStoreConfig, client *redis.Client) *SnapshotStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "clusterpulse"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &SnapshotStore{
		config: cfg,
		client: client,
	}
}

// snapshotKey returns the Redis key for a cluster's snapshot.
func (s *SnapshotStore) snapshotKey(clusterID string) string {
	return fmt.Sprintf("%s:snapshot:%s", s.config.Prefix, clusterID)
}

// Put stores the snapshot with the configured TTL.
func (s *SnapshotStore) Put(ctx context.Context, m health.ClusterMetrics) error {
	if m.ClusterID == "" {
		return fmt.Errorf("snapshot missing cluster id")
	}
	if m.CollectedAt.IsZero() {
		m.CollectedAt = time.Now().UTC()
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.snapshotKey(m.ClusterID), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// Get returns the latest snapshot for a cluster, or (nil, nil) when none
// is cached.
func (s *SnapshotStore) Get(ctx context.Context, clusterID string) (*health.ClusterMetrics, error) {
	data, err := s.client.Get(ctx, s.snapshotKey(clusterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var m health.ClusterMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &m, nil
}

// Delete removes a cluster's cached snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, clusterID string) error {
	return s.client.Del(ctx, s.snapshotKey(clusterID)).Err()
}
