package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/testutil"
)

func newTestRepo(db *sql.DB) (*SimulationRepo, *FixedTimeProvider) {
	clock := NewFixedTimeProvider(testutil.TestTime())
	return NewSimulationRepo(db, RepoConfig{TimeProvider: clock}), clock
}

func createSimulation(t *testing.T, repo *SimulationRepo, owner string) *model.Simulation {
	t.Helper()
	sim := testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").BuildSimulation(owner)
	sim.ID = ""
	require.NoError(t, repo.Create(context.Background(), sim))
	require.NotEmpty(t, sim.ID)
	return sim
}

func testResults(id string, attempt int) []*model.ResultSet {
	out := make([]*model.ResultSet, 0, len(model.ResultTypes()))
	for _, rt := range model.ResultTypes() {
		out = append(out, &model.ResultSet{
			SimulationID: id,
			ResultType:   rt,
			Data:         json.RawMessage(`{"type":"` + string(rt) + `"}`),
			Metadata:     model.ResultMetadata{Attempt: attempt},
		})
	}
	return out
}

func TestSimulationRepo_CreateGetList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()

		first := createSimulation(t, repo, "owner-1")
		clock.AddTime(time.Minute)
		second := createSimulation(t, repo, "owner-1")
		createSimulation(t, repo, "owner-2")

		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusPending, got.Status)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.Equal(t, "2023-01-01", got.StartDate.String())
		assert.Zero(t, got.Attempt)

		_, err = repo.GetByID(ctx, "not-a-uuid")
		require.ErrorIs(t, err, model.ErrSimulationNotFound)
		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, model.ErrSimulationNotFound)

		sims, err := repo.List(ctx, model.SimulationListOptions{OwnerID: "owner-1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, sims, 2)
		assert.Equal(t, second.ID, sims[0].ID, "newest first")

		n, err := repo.Count(ctx, model.SimulationListOptions{OwnerID: "owner-1"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		counts, err := repo.CountByStatus(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, 2, counts[model.SimulationStatusPending])
	})
}

func TestSimulationRepo_RunLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestRepo(db)
		ctx := context.Background()
		sim := createSimulation(t, repo, "owner-1")

		started, err := repo.BeginRun(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusRunning, started.Status)
		assert.Equal(t, 1, started.Attempt)
		require.NotNil(t, started.StartedAt)

		_, err = repo.BeginRun(ctx, sim.ID)
		require.ErrorIs(t, err, model.ErrSimulationRunning)

		run := model.NewRun(started)
		ok, err := repo.UpdateProgress(ctx, run, 60)
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = repo.UpdateProgress(ctx, run, 10)
		require.NoError(t, err)
		got, err := repo.GetByID(ctx, sim.ID)
		require.NoError(t, err)
		assert.InDelta(t, 60.0, got.Progress, 0, "progress never decreases")

		applied, err := repo.Complete(ctx, run, testResults(sim.ID, run.Attempt))
		require.NoError(t, err)
		assert.True(t, applied)

		got, err = repo.GetByID(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusCompleted, got.Status)
		assert.InDelta(t, 100.0, got.Progress, 0)
		require.NotNil(t, got.CompletedAt)

		sets, err := repo.ListBySimulation(ctx, sim.ID)
		require.NoError(t, err)
		require.Len(t, sets, 4)
		assert.Equal(t, model.ResultTypeDaily, sets[0].ResultType)
		assert.Equal(t, model.ResultTypeIndicators, sets[3].ResultType)

		annual, err := repo.ListBySimulation(ctx, sim.ID, model.ResultTypeAnnual)
		require.NoError(t, err)
		require.Len(t, annual, 1)
		assert.JSONEq(t, `{"type":"annual"}`, string(annual[0].Data))

		// A second attempt clears the first attempt's results.
		rerun, err := repo.BeginRun(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rerun.Attempt)
		sets, err = repo.ListBySimulation(ctx, sim.ID)
		require.NoError(t, err)
		assert.Empty(t, sets)

		// Outcomes for the superseded attempt are ignored.
		applied, err = repo.Complete(ctx, run, testResults(sim.ID, run.Attempt))
		require.NoError(t, err)
		assert.False(t, applied)
		ok, err = repo.Fail(ctx, run, "late")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Fail(ctx, model.NewRun(rerun), "model diverged")
		require.NoError(t, err)
		assert.True(t, ok)
		got, err = repo.GetByID(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusFailed, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "model diverged", *got.ErrorMessage)
	})
}

func TestSimulationRepo_CancelUpdateDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, _ := newTestRepo(db)
		ctx := context.Background()
		sim := createSimulation(t, repo, "owner-1")

		_, err := repo.Cancel(ctx, sim.ID)
		require.ErrorIs(t, err, model.ErrSimulationNotRunning)

		_, err = repo.BeginRun(ctx, sim.ID)
		require.NoError(t, err)

		_, err = repo.Update(ctx, sim.ID, model.UpdateSimulationRequest{Name: testutil.Ptr("renamed")})
		require.ErrorIs(t, err, model.ErrSimulationRunning)
		require.ErrorIs(t, repo.Delete(ctx, sim.ID), model.ErrSimulationRunning)

		cancelled, err := repo.Cancel(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusCancelled, cancelled.Status)

		updated, err := repo.Update(ctx, sim.ID, model.UpdateSimulationRequest{Name: testutil.Ptr("renamed")})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)
		require.NotNil(t, updated.Configuration.Physical.BasinArea)
		assert.InDelta(t, *sim.Configuration.Physical.BasinArea, *updated.Configuration.Physical.BasinArea, 0)

		require.NoError(t, repo.Delete(ctx, sim.ID))
		require.ErrorIs(t, repo.Delete(ctx, sim.ID), model.ErrSimulationNotFound)
	})
}

func TestSimulationRepo_Reaper(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()

		stale := createSimulation(t, repo, "owner-1")
		_, err := repo.BeginRun(ctx, stale.ID)
		require.NoError(t, err)

		done := createSimulation(t, repo, "owner-1")
		started, err := repo.BeginRun(ctx, done.ID)
		require.NoError(t, err)
		_, err = repo.Complete(ctx, model.NewRun(started), testResults(done.ID, 1))
		require.NoError(t, err)

		clock.AddTime(2 * time.Hour)
		fresh := createSimulation(t, repo, "owner-1")
		_, err = repo.BeginRun(ctx, fresh.ID)
		require.NoError(t, err)

		ids, err := repo.FailStaleRunning(ctx, time.Hour, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{stale.ID}, ids)

		got, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SimulationStatusFailed, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, StaleRunMessage, *got.ErrorMessage)

		deleted, err := repo.DeleteOldSimulations(ctx, core.DeleteOldSimulationsParams{
			Status:    model.SimulationStatusCompleted,
			MaxAge:    time.Hour,
			BatchSize: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		sets, err := repo.ListBySimulation(ctx, done.ID)
		require.NoError(t, err)
		assert.Empty(t, sets, "results cascade with the simulation")
	})
}

func TestSimulationRepo_Scenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()
		sim := createSimulation(t, repo, "owner-1")

		first := &model.Scenario{SimulationID: sim.ID, Name: "baseline", IsBaseline: true}
		require.NoError(t, repo.CreateScenario(ctx, first))
		clock.AddTime(time.Minute)
		second := &model.Scenario{
			SimulationID: sim.ID,
			Name:         "wet",
			Parameters: model.SimulationConfig{
				Physical: model.PhysicalConfig{AnnualPrecipitation: testutil.Ptr(1500.0)},
			},
		}
		require.NoError(t, repo.CreateScenario(ctx, second))

		list, err := repo.ListScenarios(ctx, sim.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		require.NotNil(t, list[1].Parameters.Physical.AnnualPrecipitation)
		assert.InDelta(t, 1500.0, *list[1].Parameters.Physical.AnnualPrecipitation, 0)

		require.NoError(t, repo.DeleteScenario(ctx, sim.ID, first.ID))
		require.ErrorIs(t, repo.DeleteScenario(ctx, sim.ID, first.ID), model.ErrScenarioNotFound)

		require.NoError(t, repo.Delete(ctx, sim.ID))
		list, err = repo.ListScenarios(ctx, sim.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestSimulationRepo_Configurations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()

		private := &model.ModelConfiguration{OwnerID: "owner-1", Name: "mine", ModelType: model.ModelTypePhysical}
		require.NoError(t, repo.CreateConfiguration(ctx, private))
		clock.AddTime(time.Minute)
		shared := &model.ModelConfiguration{
			OwnerID: "owner-2", Name: "shared", ModelType: model.ModelTypeIntegrated, IsPublic: true,
		}
		require.NoError(t, repo.CreateConfiguration(ctx, shared))

		list, err := repo.ListConfigurations(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, private.ID, list[0].ID)
		assert.Equal(t, shared.ID, list[1].ID)

		list, err = repo.ListConfigurations(ctx, "owner-3")
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.ErrorIs(t, repo.DeleteConfiguration(ctx, "owner-1", shared.ID), model.ErrConfigurationNotFound)
		require.NoError(t, repo.DeleteConfiguration(ctx, "owner-2", shared.ID))
	})
}
