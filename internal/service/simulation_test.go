package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/hydrosim/internal/adapters/simrunner"
	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data"
	"github.com/target/hydrosim/internal/data/sqlitestore"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/mocks"
	"github.com/target/hydrosim/internal/observability/metrics"
	"github.com/target/hydrosim/internal/observability/statsd"
	"github.com/target/hydrosim/internal/results"
	"github.com/target/hydrosim/internal/testutil"
)

const (
	ownerA = "owner-a"
	ownerB = "owner-b"
)

type simFixture struct {
	store *sqlitestore.Store
	sm    *StateMachine
	svc   *SimulationService
	rec   *statsd.Recorder
}

type simFixtureOptions struct {
	dispatcher core.Dispatcher
	cache      core.CacheRepository
}

// newSimFixture wires the service over an in-memory SQLite store. Without a
// dispatcher, attempts execute inline so Create returns after the run finished.
func newSimFixture(t *testing.T, opts simFixtureOptions) *simFixture {
	t.Helper()
	store := sqlitestore.New(testutil.OpenSQLite(t), sqlitestore.Options{
		TimeProvider: data.NewFixedTimeProvider(testutil.TestTime()),
	})
	rec := &statsd.Recorder{}
	var cache *core.ResultCache
	if opts.cache != nil {
		cache = core.NewResultCache(core.ResultCacheOptions{Cache: opts.cache})
	}
	sm, err := NewStateMachine(StateMachineOptions{Repo: store, Cache: cache, Metrics: rec})
	require.NoError(t, err)

	dispatcher := opts.dispatcher
	if dispatcher == nil {
		exec, err := NewExecutor(ExecutorOptions{
			StateMachine: sm,
			Adapter:      hydromodel.NewAdapter(hydromodel.AdapterOptions{}),
			Timeout:      time.Minute,
		})
		require.NoError(t, err)
		dispatcher = &simrunner.Inline{Executor: exec}
	}

	svc, err := NewSimulationService(SimulationServiceOptions{
		Repo:         store,
		Results:      store,
		StateMachine: sm,
		Dispatcher:   dispatcher,
		Cache:        cache,
		Metrics:      rec,
	})
	require.NoError(t, err)
	return &simFixture{store: store, sm: sm, svc: svc, rec: rec}
}

func TestNewSimulationService_Validation(t *testing.T) {
	_, err := NewSimulationService(SimulationServiceOptions{})
	require.Error(t, err)
	assert.Panics(t, func() { MustNewSimulationService(SimulationServiceOptions{}) })
}

func TestSimulationService_CreateRunsToCompletion(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithName("  Danube  ").Build())
	require.NoError(t, err)
	assert.Equal(t, "Danube", created.Name)
	assert.Equal(t, 1, created.Attempt)

	sim, err := f.svc.Get(ctx, ownerA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusCompleted, sim.Status)
	assert.InDelta(t, 100.0, sim.Progress, 0)
	require.NotNil(t, sim.CompletedAt)

	out, err := f.svc.Results(ctx, ownerA, created.ID, ResultQuery{Type: model.ResultTypeDaily})
	require.NoError(t, err)
	sets, ok := out.([]*model.ResultSet)
	require.True(t, ok)
	require.Len(t, sets, 1)

	var daily model.DailySeries
	require.NoError(t, json.Unmarshal(sets[0].Data, &daily))
	assert.Len(t, daily.Dates, 365)
	assert.Len(t, daily.Runoff, 365)
}

func TestSimulationService_CreateValidation(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, ownerA, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithName(" ").Build())
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-06-01", "2023-01-01").Build())
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithBasinArea(-5).Build())
	assert.True(t, apperrors.IsValidation(err))

	page, err := f.svc.List(ctx, ownerA, model.SimulationListOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "invalid requests must not be stored")
}

func TestSimulationService_OwnerScoping(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").Build())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, ownerB, sim.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.svc.Run(ctx, ownerB, sim.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.svc.Stop(ctx, ownerB, sim.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(f.svc.Delete(ctx, ownerB, sim.ID)))
	_, err = f.svc.Results(ctx, ownerB, sim.ID, ResultQuery{})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Get(ctx, ownerA, "not-a-uuid")
	assert.True(t, apperrors.IsNotFound(err))

	page, err := f.svc.List(ctx, ownerB, model.SimulationListOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Simulations)
}

func TestSimulationService_RunWhileRunningIsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	f := newSimFixture(t, simFixtureOptions{dispatcher: dispatcher})
	ctx := context.Background()

	// Only the first attempt reaches the dispatcher.
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().Build())
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusRunning, sim.Status)

	_, err = f.svc.Run(ctx, ownerA, sim.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Update(ctx, ownerA, sim.ID, &model.UpdateSimulationRequest{Name: testutil.Ptr("renamed")})
	assert.True(t, apperrors.IsConflict(err))
	assert.True(t, apperrors.IsConflict(f.svc.Delete(ctx, ownerA, sim.ID)))

	got, err := f.svc.Get(ctx, ownerA, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempt)
}

func TestSimulationService_Stop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	f := newSimFixture(t, simFixtureOptions{dispatcher: dispatcher})
	ctx := context.Background()

	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().Build())
	require.NoError(t, err)

	dispatcher.EXPECT().Cancel(sim.ID).Return(true)
	stopped, err := f.svc.Stop(ctx, ownerA, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusCancelled, stopped.Status)

	_, err = f.svc.Stop(ctx, ownerA, sim.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// A late report from the stopped attempt is ignored.
	applied, err := f.sm.ReportOutcome(ctx, model.NewRun(sim), Success(nil))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSimulationService_StopPendingIsConflict(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	pending := testutil.NewSimulationRequest().BuildSimulation(ownerA)
	require.NoError(t, f.store.Create(ctx, pending))

	_, err := f.svc.Stop(ctx, ownerA, pending.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestSimulationService_DispatchRefusedFailsAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	f := newSimFixture(t, simFixtureOptions{dispatcher: dispatcher})
	ctx := context.Background()

	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(simrunner.ErrQueueFull)

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().Build())
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusFailed, sim.Status)
	require.NotNil(t, sim.ErrorMessage)
	assert.Equal(t, "dispatch simulation: simulation queue is full", *sim.ErrorMessage)
	assert.Len(t, f.rec.Find(metrics.MetricDispatchRejected), 1)

	// A failed simulation can be run again.
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	rerun, err := f.svc.Run(ctx, ownerA, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rerun.Attempt)
	assert.Nil(t, rerun.ErrorMessage)
}

func TestSimulationService_RerunReplacesResults(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-02-28").Build())
	require.NoError(t, err)

	_, err = f.svc.Run(ctx, ownerA, sim.ID)
	require.NoError(t, err)

	sets, err := f.store.ListBySimulation(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, sets, len(model.ResultTypes()))
	for _, s := range sets {
		assert.Equal(t, 2, s.Metadata.Attempt)
	}
}

func TestSimulationService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f := newSimFixture(t, simFixtureOptions{dispatcher: dispatcher})
	ctx := context.Background()

	for i := range 3 {
		_, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithName("sim " + string(rune('a'+i))).Build())
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, ownerA, model.SimulationListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Simulations, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)

	page, err = f.svc.List(ctx, ownerA, model.SimulationListOptions{Offset: 2, Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, page.Simulations, 1)
	assert.Equal(t, MaxListLimit, page.Limit)

	page, err = f.svc.List(ctx, ownerA, model.SimulationListOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, page.Limit)

	running := model.SimulationStatusRunning
	page, err = f.svc.List(ctx, ownerA, model.SimulationListOptions{Status: &running})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	_, err = f.svc.List(ctx, ownerA, model.SimulationListOptions{Offset: -1})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSimulationService_UpdateAndDelete(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").Build())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, ownerA, sim.ID, &model.UpdateSimulationRequest{})
	assert.True(t, apperrors.IsValidation(err))

	updated, err := f.svc.Update(ctx, ownerA, sim.ID, &model.UpdateSimulationRequest{
		Name:        testutil.Ptr(" Rhone "),
		Description: testutil.Ptr("alpine basin"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rhone", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "alpine basin", *updated.Description)

	require.NoError(t, f.svc.Delete(ctx, ownerA, sim.ID))
	_, err = f.svc.Get(ctx, ownerA, sim.ID)
	assert.True(t, apperrors.IsNotFound(err))

	sets, err := f.store.ListBySimulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestSimulationService_Stats(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").Build())
	require.NoError(t, err)
	pending := testutil.NewSimulationRequest().BuildSimulation(ownerA)
	require.NoError(t, f.store.Create(ctx, pending))
	require.NoError(t, f.store.Create(ctx, testutil.NewSimulationRequest().BuildSimulation(ownerB)))

	stats, err := f.svc.Stats(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Pending)
	assert.Zero(t, stats.Running)
	assert.Len(t, stats.Recent, 2)
}

func TestSimulationService_ResultsQueries(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithTimeStep(model.TimeStepMonthly).Build())
	require.NoError(t, err)

	t.Run("projection", func(t *testing.T) {
		out, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Expression: "[*].result_type"})
		require.NoError(t, err)
		assert.Equal(t, []any{"daily", "monthly", "annual", "indicators"}, out)
	})

	t.Run("monthly has twelve entries", func(t *testing.T) {
		out, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{
			Type:       model.ResultTypeMonthly,
			Expression: "length([0].data.months)",
		})
		require.NoError(t, err)
		assert.InDelta(t, 12.0, out, 0)
	})

	t.Run("unknown result type", func(t *testing.T) {
		_, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Type: "hourly"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Expression: "[[["})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("no results yet", func(t *testing.T) {
		pending := testutil.NewSimulationRequest().BuildSimulation(ownerA)
		require.NoError(t, f.store.Create(ctx, pending))
		_, err := f.svc.Results(ctx, ownerA, pending.ID, ResultQuery{})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "no results available")
	})
}

func TestSimulationService_ExportAndSummary(t *testing.T) {
	f := newSimFixture(t, simFixtureOptions{})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-03-31").Build())
	require.NoError(t, err)

	raw, err := f.svc.Export(ctx, ownerA, sim.ID, results.ExportJSON)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc, len(model.ResultTypes()))

	csvOut, err := f.svc.Export(ctx, ownerA, sim.ID, results.ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvOut), "2023-01-01")
	assert.True(t, strings.Contains(string(csvOut), "\n\n"), "tables are separated by a blank line")

	summary, err := f.svc.Summary(ctx, ownerA, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusCompleted, summary.Status)
	assert.False(t, summary.Synthetic)
	assert.Contains(t, summary.KeyMetrics, "total_runoff")
	assert.Contains(t, summary.KeyMetrics, "water_balance_error")
	assert.Len(t, summary.Indicators, len(results.IndicatorNames()))
	assert.NotNil(t, summary.AvailableAt)
}

// memoryCache backs a mock CacheRepository with a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMemoryCache(ctrl *gomock.Controller) (*memoryCache, *mocks.MockCacheRepository) {
	mc := &memoryCache{entries: map[string][]byte{}}
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, keys ...string) (int64, error) {
			mc.mu.Lock()
			defer mc.mu.Unlock()
			var n int64
			for _, k := range keys {
				if _, ok := mc.entries[k]; ok {
					delete(mc.entries, k)
					n++
				}
			}
			return n, nil
		}).AnyTimes()
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) ([]byte, error) {
			mc.mu.Lock()
			defer mc.mu.Unlock()
			return mc.entries[key], nil
		}).AnyTimes()
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string, value []byte, _ time.Duration) error {
			mc.mu.Lock()
			defer mc.mu.Unlock()
			mc.sets++
			mc.entries[key] = value
			return nil
		}).AnyTimes()
	return mc, cache
}

func (mc *memoryCache) snapshot() map[string][]byte {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make(map[string][]byte, len(mc.entries))
	for k, v := range mc.entries {
		out[k] = v
	}
	return out
}

func (mc *memoryCache) restore(entries map[string][]byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for k, v := range entries {
		mc.entries[k] = v
	}
}

func TestSimulationService_ResultsReadThroughCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache := newMemoryCache(ctrl)
	f := newSimFixture(t, simFixtureOptions{cache: cache})
	ctx := context.Background()

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").Build())
	require.NoError(t, err)

	first, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Type: model.ResultTypeAnnual})
	require.NoError(t, err)
	second, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Type: model.ResultTypeAnnual})
	require.NoError(t, err)
	assert.Equal(t, 1, mc.sets, "second read is served from the cache")

	a, b := first.([]*model.ResultSet), second.([]*model.ResultSet)
	require.Len(t, b, 1)
	assert.JSONEq(t, string(a[0].Data), string(b[0].Data))

	// A rerun invalidates every cached view.
	_, err = f.svc.Run(ctx, ownerA, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, mc.snapshot())
}

func TestSimulationService_CompletionDropsLateCachedResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache := newMemoryCache(ctrl)
	dispatcher := mocks.NewMockDispatcher(ctrl)
	f := newSimFixture(t, simFixtureOptions{cache: cache, dispatcher: dispatcher})
	ctx := context.Background()

	exec, err := NewExecutor(ExecutorOptions{
		StateMachine: f.sm,
		Adapter:      hydromodel.NewAdapter(hydromodel.AdapterOptions{}),
		Timeout:      time.Minute,
	})
	require.NoError(t, err)

	// A reader that loaded the previous attempt's results before the rerun
	// started writes them back while the new attempt is running.
	var stale map[string][]byte
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, run model.Run) error {
			mc.restore(stale)
			return exec.Execute(ctx, run)
		}).Times(2)

	sim, err := f.svc.Create(ctx, ownerA, testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").Build())
	require.NoError(t, err)
	_, err = f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Type: model.ResultTypeAnnual})
	require.NoError(t, err)
	stale = mc.snapshot()
	require.NotEmpty(t, stale)

	_, err = f.svc.Run(ctx, ownerA, sim.ID)
	require.NoError(t, err)

	out, err := f.svc.Results(ctx, ownerA, sim.ID, ResultQuery{Type: model.ResultTypeAnnual})
	require.NoError(t, err)
	sets := out.([]*model.ResultSet)
	require.Len(t, sets, 1)
	assert.Equal(t, 2, sets[0].Metadata.Attempt, "results of the completed attempt are served")
}
