package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/observability/statsd"
)

func TestEmitSimulationTransition(t *testing.T) {
	var rec statsd.Recorder
	EmitSimulationTransition(&rec, SimulationMetric{
		ModelType:  "PHYSICAL",
		Transition: TransitionFail,
		Result:     ResultError,
		Duration:   time.Second,
		Err:        apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "timed out"),
	})

	counts := rec.Find(MetricTransition)
	require.Len(t, counts, 1)
	assert.Equal(t, "timeout", counts[0].Tags["error_class"])
	assert.Equal(t, "fail", counts[0].Tags["transition"])
	assert.Len(t, rec.Find(MetricDuration), 1)
}

func TestEmitSimulationTransitionNoDuration(t *testing.T) {
	var rec statsd.Recorder
	EmitSimulationTransition(&rec, SimulationMetric{Transition: TransitionRun, Result: ResultSuccess})
	assert.Len(t, rec.Find(MetricTransition), 1)
	assert.Empty(t, rec.Find(MetricDuration))

	EmitSimulationTransition(nil, SimulationMetric{})
}

func TestEmitExecution(t *testing.T) {
	var rec statsd.Recorder
	EmitExecution(&rec, ExecutionMetric{ModelType: "INTEGRATED", Synthetic: true, Result: ResultSuccess, Duration: time.Millisecond})

	samples := rec.Find(MetricExecute)
	require.Len(t, samples, 1)
	assert.Equal(t, "true", samples[0].Tags["synthetic"])
	assert.NotContains(t, samples[0].Tags, "error_class")
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "b"}
	cp := CloneTags(src)
	cp["a"] = "c"
	assert.Equal(t, "b", src["a"])
}
