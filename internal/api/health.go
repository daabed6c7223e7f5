package api

import (
	"ClusterPulse/internal/connection"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthHandler - K8s Liveness Probe
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "clusterpulse",
		"runtime": map[string]interface{}{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": float64(getMemStats().Alloc) / 1024 / 1024,
		},
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// ReadyHandler - K8s Readiness Probe. Ready means the backend event
// connection is established; a disconnected engine serves stale data.
func ReadyHandler(m *connection.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := m.Status()
		if m.IsConnected() {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":     "ready",
				"connection": status,
				"timestamp":  time.Now().UTC(),
			})
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "not_ready",
			"reason":     "backend_disconnected",
			"connection": status,
			"timestamp":  time.Now().UTC(),
		})
	}
}

func getMemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}
