// Package simrunner executes dispatched simulation attempts on a bounded worker pool.
package simrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/observability/metrics"
	"github.com/target/hydrosim/internal/observability/statsd"
)

// Dispatch errors.
var (
	ErrQueueFull = errors.New("simulation queue is full")
	ErrStopped   = errors.New("simulation runner is not accepting work")
)

// Executor runs one attempt and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, run model.Run) error
}

// RunnerOptions configures the runner.
type RunnerOptions struct {
	Executor    Executor
	Logger      *slog.Logger
	Metrics     statsd.Sink
	Concurrency int // in-flight executions; defaults to 1
	QueueSize   int // buffered attempts waiting for a slot; defaults to 64
}

// Runner is a core.Dispatcher backed by an in-process queue. Dispatch never
// blocks: a full queue is reported to the caller. Run drains the queue with
// at most Concurrency executions in flight.
type Runner struct {
	exec    Executor
	logger  *slog.Logger
	metrics statsd.Sink
	queue   chan model.Run
	sem     *semaphore.Weighted
	workers int64

	mu      sync.Mutex
	closed  bool
	running map[string]execution
}

type execution struct {
	attempt int
	cancel  context.CancelFunc
}

var _ core.Dispatcher = (*Runner)(nil)

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Runner{
		exec:    opts.Executor,
		logger:  opts.Logger.With("component", "simulation_runner"),
		metrics: opts.Metrics,
		queue:   make(chan model.Run, opts.QueueSize),
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
		workers: int64(opts.Concurrency),
		running: make(map[string]execution),
	}, nil
}

// Dispatch queues run for execution.
func (r *Runner) Dispatch(_ context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrStopped
	}
	select {
	case r.queue <- run:
		r.gaugeQueue()
		return nil
	default:
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(r.queue))
	}
}

// Cancel signals the in-flight execution of simulationID. Returns false when
// nothing is executing for it in this process.
func (r *Runner) Cancel(simulationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.running[simulationID]
	if ok {
		e.cancel()
	}
	return ok
}

// Run executes queued attempts until ctx is cancelled. On shutdown it waits for
// in-flight executions, which observe the cancellation and report themselves
// interrupted, and does the same for attempts still queued.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting simulation runner", "concurrency", r.workers, "queue_size", cap(r.queue))

	g, gctx := errgroup.WithContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return r.shutdown(ctx, g)
		case run := <-r.queue:
			r.gaugeQueue()
			if err := r.sem.Acquire(ctx, 1); err != nil {
				r.abandon(ctx, run)
				return r.shutdown(ctx, g)
			}
			g.Go(func() error {
				defer r.sem.Release(1)
				r.execute(gctx, run)
				return nil
			})
		}
	}
}

func (r *Runner) shutdown(ctx context.Context, g *errgroup.Group) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	err := g.Wait()
	for {
		select {
		case run := <-r.queue:
			r.abandon(ctx, run)
		default:
			r.logger.InfoContext(ctx, "simulation runner stopped")
			return err
		}
	}
}

// abandon lets the executor record an attempt that will not run.
func (r *Runner) abandon(ctx context.Context, run model.Run) {
	r.logger.WarnContext(ctx, "abandoning queued simulation",
		"simulation_id", run.SimulationID, "attempt", run.Attempt)
	r.execute(ctx, run)
}

func (r *Runner) execute(ctx context.Context, run model.Run) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.track(run, cancel)
	defer r.untrack(run)

	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "executor panicked",
				"simulation_id", run.SimulationID, "attempt", run.Attempt,
				"panic", p, "stack", string(debug.Stack()))
		}
	}()

	if err := r.exec.Execute(ctx, run); err != nil {
		r.logger.ErrorContext(ctx, "failed to record simulation outcome",
			"simulation_id", run.SimulationID, "attempt", run.Attempt, "error", err)
	}
}

func (r *Runner) track(run model.Run, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[run.SimulationID] = execution{attempt: run.Attempt, cancel: cancel}
}

func (r *Runner) untrack(run model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.running[run.SimulationID]; ok && e.attempt == run.Attempt {
		delete(r.running, run.SimulationID)
	}
}

// InFlight returns the number of executions currently tracked.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

func (r *Runner) gaugeQueue() {
	if r.metrics != nil {
		r.metrics.Gauge(metrics.MetricQueueDepth, float64(len(r.queue)), nil)
	}
}
