// Package metrics emits the standard simulation lifecycle metrics.
package metrics

import (
	"maps"
	"strconv"
	"time"

	obserrors "github.com/target/hydrosim/internal/observability/errors"
	"github.com/target/hydrosim/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names.
const (
	TransitionRun      = "run"
	TransitionStop     = "stop"
	TransitionComplete = "complete"
	TransitionFail     = "fail"
	TransitionReap     = "reap"
)

// Metric names.
const (
	MetricTransition       = "simulation.transition"
	MetricDuration         = "simulation.duration"
	MetricExecute          = "simulation.execute"
	MetricExecuteDuration  = "simulation.execute.duration"
	MetricDispatchRejected = "simulation.dispatch.rejected"
	MetricQueueDepth       = "simulation.queue.depth"
)

// SimulationMetric captures details about a simulation state transition.
type SimulationMetric struct {
	ModelType  string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitSimulationTransition emits standardised lifecycle metrics.
func EmitSimulationTransition(sink statsd.Sink, in SimulationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"model_type": in.ModelType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(MetricTransition, 1, tags)
	if in.Duration > 0 {
		sink.Timing(MetricDuration, in.Duration, CloneTags(tags))
	}
}

// ExecutionMetric describes one executor pass over an attempt.
type ExecutionMetric struct {
	ModelType string
	Synthetic bool
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitExecution emits the executor counter and timing, tagged with whether
// the results were synthesized.
func EmitExecution(sink statsd.Sink, in ExecutionMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"model_type": in.ModelType,
		"synthetic":  strconv.FormatBool(in.Synthetic),
		"result":     in.Result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(MetricExecute, 1, tags)
	if in.Duration > 0 {
		sink.Timing(MetricExecuteDuration, in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	maps.Copy(out, src)
	return out
}
