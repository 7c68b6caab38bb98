package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/hydrosim/internal/adapters/simrunner"
	"github.com/target/hydrosim/internal/data"
	"github.com/target/hydrosim/internal/data/sqlitestore"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/service"
	"github.com/target/hydrosim/internal/testutil"
)

const testOwner = "owner-1"

// newTestServer serves the full router over an in-memory SQLite store.
// Attempts execute inline, so create and run respond after the run finished.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := sqlitestore.New(testutil.OpenSQLite(t), sqlitestore.Options{
		TimeProvider: data.NewFixedTimeProvider(testutil.TestTime()),
	})
	sm, err := service.NewStateMachine(service.StateMachineOptions{Repo: store})
	require.NoError(t, err)
	exec, err := service.NewExecutor(service.ExecutorOptions{
		StateMachine: sm,
		Adapter:      hydromodel.NewAdapter(hydromodel.AdapterOptions{}),
		Timeout:      time.Minute,
	})
	require.NoError(t, err)
	svc := service.MustNewSimulationService(service.SimulationServiceOptions{
		Repo:         store,
		Results:      store,
		StateMachine: sm,
		Dispatcher:   &simrunner.Inline{Executor: exec},
	})

	scenarios, err := service.NewScenarioService(service.ScenarioServiceOptions{Simulations: store, Scenarios: store})
	require.NoError(t, err)
	catalog, err := service.NewCatalogService(service.CatalogServiceOptions{Configurations: store})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(RouterServices{
		Simulations:  svc,
		Scenarios:    scenarios,
		Catalog:      catalog,
		MaxBodyBytes: 1 << 20,
		Checks:       map[string]HealthCheck{"store": store.DB().PingContext},
	}))
	t.Cleanup(srv.Close)
	return srv
}

// JSONRequest encapsulates the parameters needed to execute a JSON HTTP request.
type JSONRequest struct {
	Method  string
	URL     string
	Owner   string
	Payload any
}

// DoJSON performs req and returns the status and raw body.
func DoJSON(t *testing.T, req JSONRequest) (int, http.Header, []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var body io.Reader = http.NoBody
	if req.Payload != nil {
		b, err := json.Marshal(req.Payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	require.NoError(t, err)
	if req.Payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Owner != "" {
		httpReq.Header.Set("X-Owner-ID", req.Owner)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, raw
}

// decode unmarshals raw into a fresh T.
func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}
