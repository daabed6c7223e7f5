package config

import (
	"ClusterPulse/internal/publisher"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Backend struct {
		// Source selects the event transport: "websocket" or "kafka".
		Source string `yaml:"source"`
		// Endpoint is the websocket URL of the monitoring backend.
		Endpoint string `yaml:"endpoint"`
		// MetricsBaseURL is the backend REST base for metrics snapshots.
		MetricsBaseURL string `yaml:"metrics_base_url"`
	} `yaml:"backend"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		Group   string   `yaml:"group"`
	} `yaml:"kafka"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Bus struct {
		MaxEvents int `yaml:"max_events"`
	} `yaml:"bus"`

	Reconcile struct {
		Debounce       string `yaml:"debounce"`
		RecencyWindow  string `yaml:"recency_window"`
		StatusInterval string `yaml:"status_interval"`
		PollInterval   string `yaml:"poll_interval"`
		InitialFocus   string `yaml:"initial_focus"`
	} `yaml:"reconcile"`

	Snapshot struct {
		Prefix string `yaml:"prefix"`
		TTL    string `yaml:"ttl"`
	} `yaml:"snapshot"`

	Publisher publisher.Config `yaml:"publisher"`

	HTTP struct {
		Address     string `yaml:"address"`
		MetricsPath string `yaml:"metrics_path"`
	} `yaml:"http"`
}

// Load reads and parses the YAML config file, filling in defaults for
// anything not specified.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults if not specified
	if config.Backend.Source == "" {
		config.Backend.Source = "websocket"
	}
	if config.HTTP.Address == "" {
		config.HTTP.Address = ":8080"
	}
	if config.HTTP.MetricsPath == "" {
		config.HTTP.MetricsPath = "/metrics"
	}
	if config.Reconcile.Debounce == "" {
		config.Reconcile.Debounce = "1s"
	}
	if config.Reconcile.RecencyWindow == "" {
		config.Reconcile.RecencyWindow = "30s"
	}
	if config.Reconcile.StatusInterval == "" {
		config.Reconcile.StatusInterval = "5s"
	}
	if config.Reconcile.PollInterval == "" {
		config.Reconcile.PollInterval = "30s"
	}
	if config.Snapshot.TTL == "" {
		config.Snapshot.TTL = "10m"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Backend.Source {
	case "websocket":
		if c.Backend.Endpoint == "" {
			return fmt.Errorf("backend.endpoint is required for websocket source")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for kafka source")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required for kafka source")
		}
	default:
		return fmt.Errorf("unknown backend source %q (want websocket or kafka)", c.Backend.Source)
	}

	for _, d := range []struct{ name, value string }{
		{"reconcile.debounce", c.Reconcile.Debounce},
		{"reconcile.recency_window", c.Reconcile.RecencyWindow},
		{"reconcile.status_interval", c.Reconcile.StatusInterval},
		{"reconcile.poll_interval", c.Reconcile.PollInterval},
		{"snapshot.ttl", c.Snapshot.TTL},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	return nil
}

// Duration parses a duration field that validate() already checked.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
