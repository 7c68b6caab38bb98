package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/testutil"
)

func setupSQLiteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "admin.db"))
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "false")
	return dir
}

func runAdmin(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(context.Background(), append([]string{"hydrosim-admin", "--owner", "alice"}, args...))
	return out.String(), err
}

func TestAdmin_CreateResultsExport(t *testing.T) {
	dir := setupSQLiteEnv(t)

	body, err := json.Marshal(testutil.NewSimulationRequest().WithName("cli basin").Build())
	require.NoError(t, err)

	out, err := runAdmin(t, string(body), "create")
	require.NoError(t, err)

	var sim model.Simulation
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.Equal(t, "cli basin", sim.Name)
	assert.Equal(t, "alice", sim.OwnerID)
	assert.Equal(t, model.SimulationStatusCompleted, sim.Status)

	out, err = runAdmin(t, "", "results", sim.ID, "--type", "annual")
	require.NoError(t, err)
	assert.Contains(t, out, `"result_type": "annual"`)

	out, err = runAdmin(t, "", "list", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, sim.ID)
	assert.Contains(t, out, "1 of 1")

	target := filepath.Join(dir, "export.csv")
	_, err = runAdmin(t, "", "export", sim.ID, "--format", "csv", "--out", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = runAdmin(t, "", "stop", sim.ID)
	require.Error(t, err, "completed simulations cannot be stopped")

	_, err = runAdmin(t, "", "reap")
	require.NoError(t, err)
}

func TestAdmin_OwnerScoping(t *testing.T) {
	setupSQLiteEnv(t)

	body, err := json.Marshal(testutil.NewSimulationRequest().Build())
	require.NoError(t, err)
	out, err := runAdmin(t, string(body), "create")
	require.NoError(t, err)
	var sim model.Simulation
	require.NoError(t, json.Unmarshal([]byte(out), &sim))

	var buf bytes.Buffer
	app := App()
	app.Writer = &buf
	err = app.Run(context.Background(), []string{"hydrosim-admin", "--owner", "bob", "results", sim.ID})
	require.Error(t, err)
}

func TestAdmin_ArgumentErrors(t *testing.T) {
	setupSQLiteEnv(t)

	_, err := runAdmin(t, "", "run")
	require.ErrorContains(t, err, "simulation id argument is required")

	_, err = runAdmin(t, "", "export", "abc", "--format", "xml")
	require.Error(t, err)

	_, err = runAdmin(t, "", "migrate", "--reset")
	require.ErrorContains(t, err, "--yes")

	_, err = runAdmin(t, `{"name":"x","bogus":1}`, "create")
	require.ErrorContains(t, err, "decode request")
}

func TestAdmin_MigrateReset(t *testing.T) {
	setupSQLiteEnv(t)

	out, err := runAdmin(t, "", "migrate", "--reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "schema reset")
	assert.Contains(t, out, "0001_simulations.sql")
}
