package hydromodel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/target/hydrosim/internal/artifact"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	Sink   artifact.Sink
	Logger *slog.Logger
	// Decorate wraps every sub-model before it runs.
	Decorate func(SubModel) SubModel
	// SubModels replaces built-in sub-models by name.
	SubModels map[string]SubModel
}

// Adapter is the composite model. It holds no per-run state and is safe for concurrent use.
type Adapter struct {
	sink     artifact.Sink
	logger   *slog.Logger
	decorate func(SubModel) SubModel
	registry map[string]SubModel
}

// NewAdapter creates an Adapter. Without a sink, artifacts are kept in memory.
func NewAdapter(opts AdapterOptions) *Adapter {
	sink := opts.Sink
	if sink == nil {
		sink = artifact.NewMemory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := map[string]SubModel{
		StagePhysical:     PhysicalModel{},
		StageSocio:        SocioModel{},
		StageAnthropocene: AnthropoceneModel{},
		StageAquifer:      AquiferModel{},
	}
	for name, m := range opts.SubModels {
		registry[name] = m
	}
	return &Adapter{
		sink:     sink,
		logger:   logger.With("component", "hydromodel"),
		decorate: opts.Decorate,
		registry: registry,
	}
}

// Sink returns the artifact sink runs are published to.
func (a *Adapter) Sink() artifact.Sink { return a.sink }

// Configure resolves sim into run parameters. See the package-level Configure.
func (a *Adapter) Configure(sim *model.Simulation) (Params, error) {
	return Configure(sim)
}

// Artifacts locates the published output of one run.
type Artifacts struct {
	Prefix string
	Sink   artifact.Sink
	// Keys maps artifact file names to sink keys.
	Keys map[string]string
}

// Key returns the sink key for a file name.
func (a *Artifacts) Key(name string) (string, bool) {
	if a == nil {
		return "", false
	}
	k, ok := a.Keys[name]
	return k, ok
}

// ArtifactPrefix is the key prefix for one attempt of a simulation.
func ArtifactPrefix(simulationID string, attempt int) string {
	return artifact.Key(simulationID, strconv.Itoa(attempt))
}

// Run executes the participating sub-models in order and publishes their
// artifacts. Artifacts are only written once every sub-model succeeded; any
// sub-model error or panic yields an ExecutionError and nothing is published.
func (a *Adapter) Run(ctx context.Context, sim *model.Simulation, params Params) (*Artifacts, error) {
	stages := Stages(params.ModelType, params.Aquifer != nil)
	in := Inputs{Params: params, Weather: GenerateWeather(params, NewRand(params.Seed))}

	var staged []File
	for _, name := range stages {
		m, ok := a.registry[name]
		if !ok {
			return nil, apperrors.Execution(fmt.Sprintf("sub-model %s is not registered", name))
		}
		if a.decorate != nil {
			m = a.decorate(m)
		}
		out, err := runSafely(ctx, m, in)
		if err != nil {
			a.logger.WarnContext(ctx, "sub-model failed",
				"simulation_id", sim.ID, "attempt", sim.Attempt, "sub_model", name, "error", err)
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeExecution, "sub-model %s failed", name)
		}
		in.Prior = append(in.Prior, out)
		staged = append(staged, out.Files...)
	}

	arts, err := a.publish(ctx, ArtifactPrefix(sim.ID, sim.Attempt), staged)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExecution, "publish model artifacts")
	}
	return arts, nil
}

func runSafely(ctx context.Context, m SubModel, in Inputs) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in sub-model %s: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	return m.Run(ctx, in)
}

// publish writes staged files; on failure it removes what it already wrote.
func (a *Adapter) publish(ctx context.Context, prefix string, files []File) (*Artifacts, error) {
	arts := &Artifacts{Prefix: prefix, Sink: a.sink, Keys: make(map[string]string, len(files))}
	for _, f := range files {
		key := artifact.Key(prefix, f.Name)
		if err := a.sink.Put(ctx, key, bytes.NewReader(f.Data)); err != nil {
			var cleanup error
			for _, written := range arts.Keys {
				cleanup = errors.Join(cleanup, a.sink.Remove(ctx, written))
			}
			return nil, errors.Join(err, cleanup)
		}
		arts.Keys[f.Name] = key
	}
	return arts, nil
}
