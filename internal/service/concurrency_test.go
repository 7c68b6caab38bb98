package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data"
	"github.com/target/hydrosim/internal/data/sqlitestore"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/mocks"
	"github.com/target/hydrosim/internal/testutil"
)

const concurrentRunners = 20

// raceRun fires concurrentRunners Run calls at one PENDING simulation and
// checks that exactly one attempt started and reached the dispatcher.
func raceRun(t *testing.T, store core.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	dispatcher := mocks.NewMockDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	sm, err := NewStateMachine(StateMachineOptions{Repo: store})
	require.NoError(t, err)
	svc, err := NewSimulationService(SimulationServiceOptions{
		Repo:         store,
		Results:      store,
		StateMachine: sm,
		Dispatcher:   dispatcher,
	})
	require.NoError(t, err)

	sim := testutil.NewSimulationRequest().WithPeriod("2023-01-01", "2023-01-31").BuildSimulation(ownerA)
	require.NoError(t, store.Create(ctx, sim))

	var (
		wg    sync.WaitGroup
		ready = make(chan struct{})
		errs  = make(chan error, concurrentRunners)
	)
	for range concurrentRunners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			_, err := svc.Run(ctx, ownerA, sim.ID)
			errs <- err
		}()
	}
	close(ready)
	wg.Wait()
	close(errs)

	var started, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			started++
		case apperrors.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, concurrentRunners-1, conflicts)

	got, err := store.GetByID(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SimulationStatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempt)
}

func TestSimulationService_ConcurrentRunStartsOneAttempt(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		store := sqlitestore.New(testutil.OpenSQLite(t), sqlitestore.Options{
			TimeProvider: data.NewFixedTimeProvider(testutil.TestTime()),
		})
		raceRun(t, store)
	})

	t.Run("postgres", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test")
		}
		testutil.WithAutoDB(t, func(db *sql.DB) {
			raceRun(t, data.NewSimulationRepo(db, data.RepoConfig{
				TimeProvider: data.NewFixedTimeProvider(testutil.TestTime()),
			}))
		})
	})
}
