// Package failurenotifier fans simulation failures out to the configured notification sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	obserrors "github.com/target/hydrosim/internal/observability/errors"
	"github.com/target/hydrosim/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// Timeout bounds one delivery round. Defaults to 10s.
	Timeout time.Duration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
}

var _ core.FailureNotifier = (*Service)(nil)

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		logger:  logger.With("component", "failure_notifier"),
		sinks:   sinks,
		timeout: timeout,
	}
}

// NotifySimulationFailure implements core.FailureNotifier.
func (s *Service) NotifySimulationFailure(ctx context.Context, sim *model.Simulation, cause error) {
	if s == nil || sim == nil || cause == nil {
		return
	}
	s.Notify(ctx, notify.SimulationFailurePayload{
		SimulationID:   sim.ID,
		SimulationName: sim.Name,
		OwnerID:        sim.OwnerID,
		ModelType:      string(sim.ModelType),
		Attempt:        sim.Attempt,
		Error:          cause.Error(),
		ErrorClass:     obserrors.Classify(cause),
		OccurredAt:     time.Now().UTC(),
	})
}

// Notify fans the payload out to all sinks and waits for every delivery.
// Delivery errors are logged, never returned.
func (s *Service) Notify(ctx context.Context, payload notify.SimulationFailurePayload) {
	if len(s.sinks) == 0 {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	// Deliveries outlive the caller's request context but not the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendSimulationFailure(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"simulation_id", payload.SimulationID,
					"attempt", payload.Attempt,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
