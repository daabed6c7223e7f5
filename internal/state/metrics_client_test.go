package state

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/clusters/prod-east/metrics", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cpu_percent":95,"ready_nodes":8,"total_nodes":10,"status":"warning"}`))
	}))
	defer srv.Close()

	c := NewMetricsClient(srv.URL)
	m, err := c.FetchMetrics(context.Background(), "prod-east")
	require.NoError(t, err)

	assert.Equal(t, "prod-east", m.ClusterID, "cluster id filled in when backend omits it")
	assert.Equal(t, 95.0, m.CPUPercent)
	assert.Equal(t, 8, m.ReadyNodes)
	assert.Equal(t, "warning", m.Status)
}

func TestFetchMetrics_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewMetricsClient(srv.URL)
	_, err := c.FetchMetrics(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTriggerSync(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewMetricsClient(srv.URL)
	require.NoError(t, c.TriggerSync(context.Background(), "prod-east"))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/v1/clusters/prod-east/sync", path)
}

func TestTriggerSync_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewMetricsClient(srv.URL)
	assert.Error(t, c.TriggerSync(context.Background(), "prod-east"))
}
