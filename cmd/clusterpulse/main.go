package main

import (
	"ClusterPulse/internal/api"
	"ClusterPulse/internal/bus"
	"ClusterPulse/internal/config"
	"ClusterPulse/internal/connection"
	"ClusterPulse/internal/events"
	"ClusterPulse/internal/publisher"
	"ClusterPulse/internal/reconcile"
	"ClusterPulse/internal/state"
	"ClusterPulse/pkg/kafka"
	"ClusterPulse/pkg/ws"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {

	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting ClusterPulse...")

	// Redis backs the snapshot cache and the alert stream; both are
	// optional and the engine degrades without them.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		pingCancel()
		defer redisClient.Close()
	}

	source, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("Failed to create event source: %v", err)
	}

	registry := bus.NewRegistry(cfg.Bus.MaxEvents)
	manager := connection.NewManager(source, registry)

	var fetcher reconcile.MetricsFetcher
	var metricsClient *state.MetricsClient
	if cfg.Backend.MetricsBaseURL != "" {
		metricsClient = state.NewMetricsClient(cfg.Backend.MetricsBaseURL)
		fetcher = metricsClient
	}

	var cache reconcile.SnapshotCache
	if redisClient != nil {
		cache = state.NewSnapshotStore(state.SnapshotStoreConfig{
			Prefix: cfg.Snapshot.Prefix,
			TTL:    config.Duration(cfg.Snapshot.TTL),
		}, redisClient)
	}

	var sink reconcile.AlertSink
	if cfg.Publisher.Enabled {
		pub, err := publisher.NewAlertPublisher(cfg.Publisher, redisClient)
		if err != nil {
			log.Fatalf("Failed to create alert publisher: %v", err)
		}
		sink = pub
	}

	reconciler := reconcile.NewReconciler(fetcher, cache, sink)

	debouncer := reconcile.NewDebouncer(registry, reconciler, reconcile.DebouncerConfig{
		Debounce:      config.Duration(cfg.Reconcile.Debounce),
		RecencyWindow: config.Duration(cfg.Reconcile.RecencyWindow),
	})
	defer debouncer.Stop()
	if cfg.Reconcile.InitialFocus != "" {
		debouncer.SetFocus(cfg.Reconcile.InitialFocus)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The event log served by /api/v1/events retains every event the
	// connection delivers, independent of the focused cluster.
	apiSubID := registry.Subscribe(events.All(), func(*events.Event) {})

	srv := startHTTPServer(cfg, manager, registry, reconciler, debouncer, metricsClient, apiSubID)

	if err := manager.Connect(ctx); err != nil {
		// The poller retries; starting disconnected is not fatal.
		log.Printf("Initial connect failed: %v", err)
	}

	poller := reconcile.NewPoller(manager, reconciler, debouncer.Focus,
		config.Duration(cfg.Reconcile.StatusInterval),
		config.Duration(cfg.Reconcile.PollInterval))
	go poller.Run(ctx)

	waitForShutdown()

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	manager.Disconnect()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

func buildSource(cfg *config.Config) (connection.Source, error) {
	if cfg.Backend.Source == "kafka" {
		return kafka.NewSource(&kafka.Config{
			Brokers: strings.Join(cfg.Kafka.Brokers, ","),
			Topic:   cfg.Kafka.Topic,
			Group:   cfg.Kafka.Group,
		})
	}
	return ws.NewClient(cfg.Backend.Endpoint), nil
}

func startHTTPServer(
	cfg *config.Config,
	manager *connection.Manager,
	registry *bus.Registry,
	reconciler *reconcile.Reconciler,
	debouncer *reconcile.Debouncer,
	metricsClient *state.MetricsClient,
	apiSubID string,
) *http.Server {
	mux := http.NewServeMux()

	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())

	mux.HandleFunc("/health", api.HealthHandler)
	mux.HandleFunc("/ready", api.ReadyHandler(manager))

	mux.HandleFunc("/api/v1/connection", api.ConnectionHandler(manager))
	mux.HandleFunc("/api/v1/focus", api.FocusHandler(debouncer))
	mux.HandleFunc("/api/v1/events", api.EventsHandler(registry, apiSubID))
	mux.HandleFunc("/api/v1/clusters/", clusterRouter(reconciler, metricsClient))

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting HTTP server on %s", cfg.HTTP.Address)
		log.Printf("Metrics endpoint: %s", cfg.HTTP.MetricsPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	return srv
}

// clusterRouter dispatches /api/v1/clusters/{cluster}/{score|alerts|sync}.
func clusterRouter(reconciler *reconcile.Reconciler, metricsClient *state.MetricsClient) http.HandlerFunc {
	score := api.HealthScoreHandler(reconciler)
	alerts := api.AlertsHandler(reconciler)
	sync := api.SyncHandler(metricsClient, reconciler)

	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/score"):
			score(w, r)
		case strings.HasSuffix(r.URL.Path, "/alerts"):
			alerts(w, r)
		case strings.HasSuffix(r.URL.Path, "/sync"):
			sync(w, r)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v", sig)
}
