package simrunner

import (
	"context"
	"sync"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
)

// Inline executes each attempt synchronously inside Dispatch. It serves
// one-shot callers such as the admin CLI, where the caller waits for the outcome.
type Inline struct {
	Executor Executor

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

var _ core.Dispatcher = (*Inline)(nil)

// Dispatch runs the attempt to completion. Execution outlives the caller's
// cancellation only through the outcome report.
func (d *Inline) Dispatch(ctx context.Context, run model.Run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	if d.running == nil {
		d.running = make(map[string]context.CancelFunc)
	}
	d.running[run.SimulationID] = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.running, run.SimulationID)
		d.mu.Unlock()
	}()
	return d.Executor.Execute(ctx, run)
}

// Cancel signals an attempt currently executing in Dispatch.
func (d *Inline) Cancel(simulationID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cancel, ok := d.running[simulationID]
	if ok {
		cancel()
	}
	return ok
}
