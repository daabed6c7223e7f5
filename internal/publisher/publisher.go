package publisher

import (
	"ClusterPulse/internal/health"
	"ClusterPulse/internal/metrics"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config controls the downstream alert stream. Durations are strings so
// they read naturally in YAML ("500ms", "5m").
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	StreamKey     string `yaml:"stream_key"`
	MaxRetries    int    `yaml:"max_retries"`
	RetryInterval string `yaml:"retry_interval"`
	DeDupeWindow  string `yaml:"dedupe_window"`
}

// AlertPublisher pushes active alerts onto a Redis stream so other
// systems (notifiers, incident tooling) can consume them. Alerts are
// deduplicated by their deterministic ID within a rolling window.
type AlertPublisher struct {
	client        *redis.Client
	enabled       bool
	config        Config
	retryInterval time.Duration
	dedupeWindow  time.Duration
}

// NewAlertPublisher creates a publisher over an injected Redis client. The
// caller keeps ownership of the client and is responsible for closing it.
func NewAlertPublisher(config Config, client *redis.Client) (*AlertPublisher, error) {
	if !config.Enabled {
		return &AlertPublisher{
			enabled: false,
			config:  config,
		}, nil
	}

	if client == nil {
		return nil, fmt.Errorf("publisher enabled but no redis client configured")
	}

	if config.StreamKey == "" {
		config.StreamKey = "clusterpulse:alerts"
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryInterval == "" {
		config.RetryInterval = "500ms"
	}
	if config.DeDupeWindow == "" {
		config.DeDupeWindow = "5m"
	}
	retry, err := time.ParseDuration(config.RetryInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid retry interval: %w", err)
	}
	window, err := time.ParseDuration(config.DeDupeWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid dedupe window: %w", err)
	}

	return &AlertPublisher{
		client:        client,
		enabled:       true,
		config:        config,
		retryInterval: retry,
		dedupeWindow:  window,
	}, nil
}

// PublishAlerts sends each alert to the stream, skipping any whose ID
// was already published within the dedup window.
func (p *AlertPublisher) PublishAlerts(ctx context.Context, clusterID string, alerts []health.Alert) error {
	if p == nil || !p.enabled {
		return nil
	}

	for _, alert := range alerts {
		if err := p.publishOne(ctx, clusterID, alert); err != nil {
			return err
		}
	}
	return nil
}

func (p *AlertPublisher) publishOne(ctx context.Context, clusterID string, alert health.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	dedupeKey := fmt.Sprintf("clusterpulse:dedup:%s", alert.ID)
	wasNew, err := p.client.SetNX(ctx, dedupeKey, "1", p.dedupeWindow).Result()
	if err != nil {
		log.Printf("Dedup check failed: %v", err)
	} else if !wasNew {
		log.Printf("Alert deduplicated: %s for cluster %s (id: %s)",
			alert.Type, clusterID, alert.ID)
		metrics.AlertsDeduplicated.Inc()
		return nil
	}

	var lastErr error
	for i := 0; i < p.config.MaxRetries; i++ {
		_, err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.config.StreamKey,
			MaxLen: 100000,
			Approx: true,
			Values: map[string]interface{}{
				"alert":     string(data),
				"type":      string(alert.Type),
				"severity":  string(alert.Severity),
				"cluster":   clusterID,
				"timestamp": alert.Timestamp.Unix(),
			},
		}).Result()

		if err == nil {
			log.Printf("Published alert: %s [%s] for cluster %s",
				alert.Type, alert.Severity, clusterID)
			metrics.AlertsPublished.Inc()
			return nil
		}

		lastErr = err
		if i < p.config.MaxRetries-1 {
			time.Sleep(p.retryInterval * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to publish alert after %d retries: %w", p.config.MaxRetries, lastErr)
}
