package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/observability/notify"
)

func captureSink(mu *sync.Mutex, received *[]notify.SimulationFailurePayload) notify.Sink {
	return notify.SinkFunc(func(_ context.Context, payload notify.SimulationFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		*received = append(*received, payload)
		return nil
	})
}

func TestServiceNotifySimulationFailure(t *testing.T) {
	var mu sync.Mutex
	var received []notify.SimulationFailurePayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "first", Sink: captureSink(&mu, &received)},
			{Name: "second", Sink: captureSink(&mu, &received)},
			{Name: "nil"},
		},
	})
	require.True(t, svc.Enabled())

	sim := &model.Simulation{
		ID:        "sim-1",
		Name:      "Upper basin",
		OwnerID:   "owner-1",
		ModelType: model.ModelTypeIntegrated,
		Attempt:   2,
	}
	svc.NotifySimulationFailure(context.Background(), sim,
		apperrors.Wrap(errors.New("disk full"), apperrors.ErrCodePersistence, "store results"))

	require.Len(t, received, 2)
	got := received[0]
	assert.Equal(t, "sim-1", got.SimulationID)
	assert.Equal(t, "Upper basin", got.SimulationName)
	assert.Equal(t, "INTEGRATED", got.ModelType)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "persistence", got.ErrorClass)
	assert.Contains(t, got.Error, "disk full")
	assert.Equal(t, notify.SeverityCritical, got.Severity)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	assert.False(t, svc.Enabled())
	svc.NotifySimulationFailure(context.Background(), &model.Simulation{ID: "x"}, errors.New("boom"))

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	nilSvc.NotifySimulationFailure(context.Background(), &model.Simulation{ID: "x"}, errors.New("boom"))
}

func TestServiceLogsErrors(t *testing.T) {
	// A failing sink must not panic or block the others.
	var mu sync.Mutex
	var received []notify.SimulationFailurePayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "fail", Sink: notify.SinkFunc(func(context.Context, notify.SimulationFailurePayload) error {
				return errors.New("boom")
			})},
			{Name: "capture", Sink: captureSink(&mu, &received)},
		},
	})

	svc.Notify(context.Background(), notify.SimulationFailurePayload{SimulationID: "123", Severity: notify.SeverityWarning})
	require.Len(t, received, 1)
	assert.Equal(t, notify.SeverityWarning, received[0].Severity)
}

func TestServiceOutlivesCanceledContext(t *testing.T) {
	var mu sync.Mutex
	var received []notify.SimulationFailurePayload
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: notify.SinkFunc(
		func(ctx context.Context, p notify.SimulationFailurePayload) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			received = append(received, p)
			return nil
		})}}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.NotifySimulationFailure(ctx, &model.Simulation{ID: "sim"}, errors.New("late"))
	assert.Len(t, received, 1)
}
