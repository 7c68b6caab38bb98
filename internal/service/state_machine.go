// Package service implements the simulation lifecycle: the state machine guarding
// status transitions, the executor driving one attempt, the owner-facing
// simulation operations and the stale-run reaper.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/observability/metrics"
	"github.com/target/hydrosim/internal/observability/statsd"
)

// Outcome is the single result an executor reports for an attempt.
// A nil Err means success and Results are persisted.
type Outcome struct {
	Results []*model.ResultSet
	Err     error
}

const defaultFailureMessage = "simulation failed"

// Success reports a completed attempt.
func Success(results []*model.ResultSet) Outcome {
	return Outcome{Results: results}
}

// Failure reports a failed attempt. The stored error message is FailureMessage(err).
func Failure(err error) Outcome {
	if err == nil {
		err = errors.New(defaultFailureMessage)
	}
	return Outcome{Err: err}
}

// FailureMessage is the text stored on a FAILED simulation. Persistence errors
// keep the underlying store message verbatim.
func FailureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodePersistence && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultFailureMessage
}

// StateMachineOptions groups dependencies for StateMachine.
type StateMachineOptions struct {
	Repo     core.SimulationRepository // Required: simulation repository
	Notifier core.FailureNotifier      // Optional: receives FAILED transitions
	Cache    *core.ResultCache         // Optional: invalidated when results are stored
	Metrics  statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	Logger   *slog.Logger              // Optional: structured logger
}

// StateMachine owns every status transition of a simulation. Each transition is
// a single conditional write in the repository, so concurrent callers never
// observe two attempts running for the same simulation.
type StateMachine struct {
	repo     core.SimulationRepository
	notifier core.FailureNotifier
	cache    *core.ResultCache
	metrics  statsd.Sink
	logger   *slog.Logger
}

// NewStateMachine constructs a StateMachine.
func NewStateMachine(opts StateMachineOptions) (*StateMachine, error) {
	if opts.Repo == nil {
		return nil, errors.New("SimulationRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{
		repo:     opts.Repo,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "state_machine"),
	}, nil
}

// RequestRun starts a new attempt. Prior results are dropped in the same write.
func (m *StateMachine) RequestRun(ctx context.Context, id string) (*model.Simulation, error) {
	sim, err := m.repo.BeginRun(ctx, id)
	if err != nil {
		err = mapRepoError(err, id)
		m.emit("", metrics.TransitionRun, metrics.ResultError, 0, err)
		return nil, err
	}
	m.emit(sim.ModelType, metrics.TransitionRun, metrics.ResultSuccess, 0, nil)
	m.logger.InfoContext(ctx, "simulation started", "simulation_id", sim.ID, "attempt", sim.Attempt)
	return sim, nil
}

// RequestStop cancels the running attempt. CANCELLED is sticky: later reports
// from that attempt are ignored.
func (m *StateMachine) RequestStop(ctx context.Context, id string) (*model.Simulation, error) {
	sim, err := m.repo.Cancel(ctx, id)
	if err != nil {
		err = mapRepoError(err, id)
		m.emit("", metrics.TransitionStop, metrics.ResultError, 0, err)
		return nil, err
	}
	m.emit(sim.ModelType, metrics.TransitionStop, metrics.ResultSuccess, sinceStart(sim), nil)
	m.logger.InfoContext(ctx, "simulation stopped", "simulation_id", sim.ID, "attempt", sim.Attempt)
	return sim, nil
}

// ReportProgress records progress for a running attempt, clamped to
// [0,MaxRunningProgress]. Only a completed attempt reaches 100. Progress never
// decreases. Returns false when the attempt is no longer running.
func (m *StateMachine) ReportProgress(ctx context.Context, run model.Run, pct float64) (bool, error) {
	applied, err := m.repo.UpdateProgress(ctx, run, clampPercent(pct))
	if err != nil {
		return false, fmt.Errorf("report progress: %w", err)
	}
	return applied, nil
}

// ReportOutcome applies the single outcome of an attempt.
//
// Success stores the results and marks the simulation COMPLETED in one
// transaction; a store failure is returned as a persistence error and nothing
// is changed. Failure marks it FAILED. Both are no-ops, returning false, when
// the attempt is no longer the running one.
func (m *StateMachine) ReportOutcome(ctx context.Context, run model.Run, outcome Outcome) (bool, error) {
	modelType := runModelType(run)
	if outcome.Err == nil {
		applied, err := m.repo.Complete(ctx, run, outcome.Results)
		if err != nil {
			perr := apperrors.Wrap(err, apperrors.ErrCodePersistence, "persist simulation results")
			m.emit(modelType, metrics.TransitionComplete, metrics.ResultError, 0, perr)
			return false, perr
		}
		if !applied {
			m.ignored(ctx, run, metrics.TransitionComplete)
			return false, nil
		}
		// A reader may have cached the empty result set of this attempt
		// between RequestRun and Complete.
		m.cache.Invalidate(ctx, run.SimulationID)
		m.emit(modelType, metrics.TransitionComplete, metrics.ResultSuccess, sinceStart(run.Simulation), nil)
		m.logger.InfoContext(ctx, "simulation completed",
			"simulation_id", run.SimulationID, "attempt", run.Attempt, "result_sets", len(outcome.Results))
		return true, nil
	}

	msg := FailureMessage(outcome.Err)
	applied, err := m.repo.Fail(ctx, run, msg)
	if err != nil {
		return false, fmt.Errorf("record failure: %w", err)
	}
	if !applied {
		m.ignored(ctx, run, metrics.TransitionFail)
		return false, nil
	}
	m.emit(modelType, metrics.TransitionFail, metrics.ResultError, sinceStart(run.Simulation), outcome.Err)
	m.logger.WarnContext(ctx, "simulation failed",
		"simulation_id", run.SimulationID, "attempt", run.Attempt, "error", msg)

	if m.notifier != nil && run.Simulation != nil {
		failed := *run.Simulation
		failed.Status = model.SimulationStatusFailed
		failed.ErrorMessage = &msg
		m.notifier.NotifySimulationFailure(ctx, &failed, outcome.Err)
	}
	return true, nil
}

func (m *StateMachine) ignored(ctx context.Context, run model.Run, transition string) {
	m.logger.DebugContext(ctx, "ignoring report for superseded attempt",
		"simulation_id", run.SimulationID, "attempt", run.Attempt, "transition", transition)
	m.emit(runModelType(run), transition, metrics.ResultNoop, 0, nil)
}

func (m *StateMachine) emit(mt model.ModelType, transition, result string, d time.Duration, err error) {
	metrics.EmitSimulationTransition(m.metrics, metrics.SimulationMetric{
		ModelType:  string(mt),
		Transition: transition,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}

// mapRepoError converts repository sentinels into application errors.
func mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, model.ErrSimulationNotFound):
		return apperrors.NotFoundf("simulation %s not found", id)
	case errors.Is(err, model.ErrSimulationRunning):
		return apperrors.Conflictf("simulation %s is already running", id)
	case errors.Is(err, model.ErrSimulationNotRunning):
		return apperrors.Conflictf("simulation %s is not running", id)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if mapped := apperrors.MapDBError(err); mapped != err {
		return mapped
	}
	return fmt.Errorf("simulation %s: %w", id, err)
}

// MaxRunningProgress is the highest progress a running attempt can report.
const MaxRunningProgress = 99

func clampPercent(pct float64) float64 {
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > MaxRunningProgress:
		return MaxRunningProgress
	}
	return pct
}

func runModelType(run model.Run) model.ModelType {
	if run.Simulation == nil {
		return ""
	}
	return run.Simulation.ModelType
}

func sinceStart(sim *model.Simulation) time.Duration {
	if sim == nil || sim.StartedAt == nil {
		return 0
	}
	return time.Since(*sim.StartedAt)
}
