package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/observability/metrics"
	"github.com/target/hydrosim/internal/observability/statsd"
	"github.com/target/hydrosim/internal/results"
)

// Progress checkpoints reported while an attempt executes.
const (
	ProgressConfigured = 10
	ProgressModelRan   = 60
	ProgressLoaded     = 80
	ProgressAggregated = 90
)

// ModelAdapter is the composite model as seen by the executor.
type ModelAdapter interface {
	Configure(sim *model.Simulation) (hydromodel.Params, error)
	Run(ctx context.Context, sim *model.Simulation, params hydromodel.Params) (*hydromodel.Artifacts, error)
}

// ResultLoader turns model artifacts into a daily series, synthesizing one when needed.
type ResultLoader interface {
	Load(ctx context.Context, src *results.Source, sim *model.Simulation) *results.Series
	Fallback(ctx context.Context, sim *model.Simulation, reason error) *results.Series
}

// ExecutorOptions groups dependencies for Executor.
type ExecutorOptions struct {
	StateMachine *StateMachine           // Required: applies progress and outcome
	Adapter      ModelAdapter            // Required: composite model
	Loader       ResultLoader            // Optional: defaults to results.NewLoader
	Scorer       results.IndicatorScorer // Optional: defaults to results.FormulaScorer
	Timeout      time.Duration           // Optional: per-attempt deadline, 0 disables
	Metrics      statsd.Sink             // Optional: metrics sink (StatsD-compatible)
	Logger       *slog.Logger            // Optional: structured logger
	Now          func() time.Time        // Optional: clock for processing time
}

// Executor drives one attempt of a simulation from configuration to outcome.
// Model failures degrade to synthetic results; only persistence failures,
// timeouts and interruptions fail the attempt.
type Executor struct {
	sm      *StateMachine
	adapter ModelAdapter
	loader  ResultLoader
	scorer  results.IndicatorScorer
	timeout time.Duration
	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
}

// NewExecutor constructs an Executor.
func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.StateMachine == nil {
		return nil, errors.New("StateMachine is required")
	}
	if opts.Adapter == nil {
		return nil, errors.New("ModelAdapter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := opts.Loader
	if loader == nil {
		loader = results.NewLoader(results.LoaderOptions{Logger: logger})
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = results.FormulaScorer{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Executor{
		sm:      opts.StateMachine,
		adapter: opts.Adapter,
		loader:  loader,
		scorer:  scorer,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		logger:  logger.With("component", "executor"),
		now:     now,
	}, nil
}

// Execute runs the attempt described by run and reports exactly one outcome.
// The returned error is only non-nil when the outcome itself could not be recorded.
// A panic anywhere in the attempt is reported as a failure.
func (e *Executor) Execute(ctx context.Context, run model.Run) (err error) {
	sim := run.Simulation
	if sim == nil {
		return fmt.Errorf("run %s/%d has no simulation snapshot", run.SimulationID, run.Attempt)
	}
	start := e.now()
	defer func() {
		if p := recover(); p != nil {
			err = e.recovered(ctx, run, start, p)
		}
	}()

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	// Outcomes are recorded even when the attempt's own context is done.
	reportCtx := context.WithoutCancel(ctx)

	var (
		sets      []*model.ResultSet
		synthetic bool
	)
	err = e.interrupted(runCtx)
	if err == nil {
		sets, synthetic, err = e.produce(runCtx, reportCtx, run)
	}
	if err == nil {
		err = e.interrupted(runCtx)
	}
	if err != nil {
		e.emit(sim, synthetic, start, err)
		_, rerr := e.sm.ReportOutcome(reportCtx, run, Failure(err))
		return rerr
	}

	_, err = e.sm.ReportOutcome(reportCtx, run, Success(sets))
	if err != nil {
		e.emit(sim, synthetic, start, err)
		e.logger.ErrorContext(ctx, "failed to persist results",
			"simulation_id", run.SimulationID, "attempt", run.Attempt, "error", err)
		_, rerr := e.sm.ReportOutcome(reportCtx, run, Failure(err))
		return rerr
	}
	e.emit(sim, synthetic, start, nil)
	return nil
}

// recovered fails the attempt after a panic. The report is a no-op when an
// outcome was already recorded.
func (e *Executor) recovered(ctx context.Context, run model.Run, start time.Time, p any) error {
	e.logger.ErrorContext(ctx, "simulation attempt panicked",
		"simulation_id", run.SimulationID, "attempt", run.Attempt,
		"panic", p, "stack", string(debug.Stack()))
	cause := &apperrors.AppError{
		Code:    apperrors.ErrCodeInternal,
		Message: fmt.Sprintf("simulation panicked: %v", p),
	}
	e.emit(run.Simulation, false, start, cause)
	_, err := e.sm.ReportOutcome(context.WithoutCancel(ctx), run, Failure(cause))
	return err
}

// produce computes the result sets of an attempt. Model and configuration
// failures fall back to a synthetic series rather than returning an error.
func (e *Executor) produce(
	ctx, reportCtx context.Context,
	run model.Run,
) ([]*model.ResultSet, bool, error) {
	sim := run.Simulation
	started := e.now()

	var series *results.Series
	params, err := e.adapter.Configure(sim)
	if err != nil {
		cerr := apperrors.Wrap(err, apperrors.ErrCodeExecution, "configure model")
		e.logger.WarnContext(ctx, "model configuration failed",
			"simulation_id", sim.ID, "attempt", sim.Attempt, "error", err)
		params = fallbackParams(sim)
		series = e.loader.Fallback(ctx, sim, cerr)
	} else {
		e.progress(reportCtx, run, ProgressConfigured)

		arts, rerr := e.adapter.Run(ctx, sim, params)
		if ierr := e.interrupted(ctx); ierr != nil {
			return nil, false, ierr
		}
		e.progress(reportCtx, run, ProgressModelRan)
		if rerr != nil {
			series = e.loader.Fallback(ctx, sim, rerr)
		} else {
			series = e.loader.Load(ctx, results.SourceFor(arts), sim)
		}
	}
	e.progress(reportCtx, run, ProgressLoaded)

	sets, err := results.Build(results.BuildInput{
		Simulation: sim,
		Series:     series,
		Params:     params,
		Scorer:     e.scorer,
		StartedAt:  started,
		FinishedAt: e.now(),
	})
	if err != nil {
		return nil, series.Synthetic, apperrors.Wrap(err, apperrors.ErrCodeInternal, "aggregate results")
	}
	e.progress(reportCtx, run, ProgressAggregated)
	return sets, series.Synthetic, nil
}

// interrupted reports why ctx ended, if it did.
func (e *Executor) interrupted(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeTimeout,
			Message: fmt.Sprintf("simulation timed out after %s", e.timeout),
		}
	default:
		return &apperrors.AppError{Code: apperrors.ErrCodeCanceled, Message: "simulation was interrupted"}
	}
}

func (e *Executor) progress(ctx context.Context, run model.Run, pct float64) {
	if _, err := e.sm.ReportProgress(ctx, run, pct); err != nil {
		e.logger.WarnContext(ctx, "failed to report progress",
			"simulation_id", run.SimulationID, "attempt", run.Attempt, "progress", pct, "error", err)
	}
}

func (e *Executor) emit(sim *model.Simulation, synthetic bool, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitExecution(e.metrics, metrics.ExecutionMetric{
		ModelType: string(sim.ModelType),
		Synthetic: synthetic,
		Result:    result,
		Duration:  e.now().Sub(start),
		Err:       err,
	})
}

// fallbackParams are the defaults used to score a run whose configuration
// could not be resolved.
func fallbackParams(sim *model.Simulation) hydromodel.Params {
	return hydromodel.Params{
		ModelType:    sim.ModelType,
		Period:       sim.Period(),
		Physical:     hydromodel.DefaultPhysical(),
		Socio:        hydromodel.DefaultSocio(),
		Anthropocene: hydromodel.DefaultAnthropocene(),
		Seed:         hydromodel.Seed(sim.ID, sim.Attempt),
	}
}
