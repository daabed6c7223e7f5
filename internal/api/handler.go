package api

import (
	"ClusterPulse/internal/bus"
	"ClusterPulse/internal/connection"
	"ClusterPulse/internal/events"
	"ClusterPulse/internal/reconcile"
	"ClusterPulse/internal/state"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// HealthScoreHandler GET /api/v1/clusters/{cluster}/score
func HealthScoreHandler(rec *reconcile.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clusterID, rest := splitClusterPath(r.URL.Path)
		if clusterID == "" || rest != "score" {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}

		score, ok := rec.LatestScore(clusterID)
		if !ok {
			http.Error(w, fmt.Sprintf("No score computed yet for cluster %s", clusterID), http.StatusNotFound)
			return
		}
		writeJSON(w, score)
	}
}

// AlertsHandler GET /api/v1/clusters/{cluster}/alerts
func AlertsHandler(rec *reconcile.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clusterID, rest := splitClusterPath(r.URL.Path)
		if clusterID == "" || rest != "alerts" {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		writeJSON(w, rec.LatestAlerts(clusterID))
	}
}

// SyncHandler POST /api/v1/clusters/{cluster}/sync
func SyncHandler(client *state.MetricsClient, rec *reconcile.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clusterID, rest := splitClusterPath(r.URL.Path)
		if clusterID == "" || rest != "sync" {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}

		if client != nil {
			if err := client.TriggerSync(r.Context(), clusterID); err != nil {
				log.Printf("Sync trigger failed for %s: %v", clusterID, err)
				http.Error(w, "Sync trigger failed", http.StatusBadGateway)
				return
			}
		}
		rec.Refresh(r.Context(), clusterID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "refreshed", "cluster": clusterID})
	}
}

// ConnectionHandler GET /api/v1/connection
func ConnectionHandler(m *connection.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, m.Status())
	}
}

// FocusHandler GET/PUT /api/v1/focus
//
// The focused cluster is the one whose events drive health recomputation.
func FocusHandler(d *reconcile.Debouncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, map[string]string{"cluster": d.Focus()})

		case http.MethodPut, http.MethodPost:
			var body struct {
				Cluster string `json:"cluster"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Cluster == "" {
				http.Error(w, "Body must be {\"cluster\": \"<id>\"}", http.StatusBadRequest)
				return
			}
			d.SetFocus(body.Cluster)
			writeJSON(w, map[string]string{"cluster": body.Cluster})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// EventsHandler GET /api/v1/events?type=&severity=
//
// Serves the retained event log of a dedicated server-owned subscription,
// newest first. Filters are optional and mutually exclusive; type wins.
func EventsHandler(registry *bus.Registry, subID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var result []*events.Event
		if t := r.URL.Query().Get("type"); t != "" {
			result = registry.EventsByType(subID, events.EventType(t))
		} else if s := r.URL.Query().Get("severity"); s != "" {
			result = registry.EventsBySeverity(subID, events.EventSeverity(s))
		} else {
			result = registry.Events(subID)
		}
		if result == nil {
			result = []*events.Event{}
		}
		writeJSON(w, result)
	}
}

// splitClusterPath extracts the cluster id and trailing segment from
// /api/v1/clusters/{cluster}/{rest}.
func splitClusterPath(path string) (clusterID, rest string) {
	const prefix = "/api/v1/clusters/"
	if len(path) <= len(prefix) {
		return "", ""
	}
	remainder := path[len(prefix):]
	for i := 0; i < len(remainder); i++ {
		if remainder[i] == '/' {
			return remainder[:i], remainder[i+1:]
		}
	}
	return remainder, ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
