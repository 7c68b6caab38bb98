package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hydrosim/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	require.NoError(t, err)

	event := client.buildEvent(notify.SimulationFailurePayload{
		SimulationID: "sim-1",
		ModelType:    "INTEGRATED",
		Attempt:      2,
		Error:        "boom",
		ErrorClass:   "persistence",
		Metadata:     map[string]string{"owner_id": "ignored", "region": "eu"},
	})

	assert.Equal(t, "sim-1:2", event["dedup_key"])
	section, ok := event["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, notify.SeverityCritical, section["severity"])
	assert.Equal(t, "hydrosim", section["source"])
	assert.Equal(t, "Simulation sim-1 (INTEGRATED) failed", section["summary"])

	custom, ok := section["custom_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", custom["error"])
	assert.Equal(t, "eu", custom["region"])
	assert.Equal(t, "", custom["owner_id"], "metadata must not overwrite payload fields")
}

func TestSendSimulationFailureRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key", body["routing_key"])
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL, RetryLimit: 1})
	require.NoError(t, err)
	require.NoError(t, client.SendSimulationFailure(context.Background(), notify.SimulationFailurePayload{SimulationID: "s"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendSimulationFailureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL})
	require.NoError(t, err)
	err = client.SendSimulationFailure(context.Background(), notify.SimulationFailurePayload{SimulationID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}
