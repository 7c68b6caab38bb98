package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/observability/metrics"
	"github.com/target/hydrosim/internal/observability/statsd"
	"github.com/target/hydrosim/internal/results"
)

// Listing limits.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
	recentLimit      = 5
)

// SimulationServiceOptions groups dependencies for SimulationService.
type SimulationServiceOptions struct {
	Repo         core.SimulationRepository // Required: simulation repository
	Results      core.ResultRepository     // Required: result repository
	StateMachine *StateMachine             // Required: status transitions
	Dispatcher   core.Dispatcher           // Required: hands started attempts to an executor
	Cache        *core.ResultCache         // Optional: read-through result cache
	Query        results.QueryEvaluator    // Optional: defaults to results.JMESPath
	Metrics      statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	Logger       *slog.Logger              // Optional: structured logger
}

// SimulationService implements the owner-facing simulation operations. Every
// operation is scoped to an owner; a simulation owned by someone else is
// reported as not found.
type SimulationService struct {
	repo       core.SimulationRepository
	results    core.ResultRepository
	sm         *StateMachine
	dispatcher core.Dispatcher
	cache      *core.ResultCache
	query      results.QueryEvaluator
	metrics    statsd.Sink
	logger     *slog.Logger
}

// NewSimulationService constructs a SimulationService.
func NewSimulationService(opts SimulationServiceOptions) (*SimulationService, error) {
	switch {
	case opts.Repo == nil:
		return nil, errors.New("SimulationRepository is required")
	case opts.Results == nil:
		return nil, errors.New("ResultRepository is required")
	case opts.StateMachine == nil:
		return nil, errors.New("StateMachine is required")
	case opts.Dispatcher == nil:
		return nil, errors.New("Dispatcher is required")
	}
	query := opts.Query
	if query == nil {
		query = results.JMESPath{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationService{
		repo:       opts.Repo,
		results:    opts.Results,
		sm:         opts.StateMachine,
		dispatcher: opts.Dispatcher,
		cache:      opts.Cache,
		query:      query,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "simulation_service"),
	}, nil
}

// MustNewSimulationService constructs a SimulationService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewSimulationService(opts SimulationServiceOptions) *SimulationService {
	svc, err := NewSimulationService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SimulationService: %v", err))
	}
	return svc
}

// Create validates req, stores a PENDING simulation and starts its first attempt.
func (s *SimulationService) Create(
	ctx context.Context,
	ownerID string,
	req *model.CreateSimulationRequest,
) (*model.Simulation, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sim := &model.Simulation{
		OwnerID:       ownerID,
		Name:          req.Name,
		Description:   req.Description,
		Status:        model.SimulationStatusPending,
		ModelType:     req.ModelType,
		TimeStep:      req.TimeStep,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Configuration: req.Configuration,
	}
	if err := s.repo.Create(ctx, sim); err != nil {
		return nil, fmt.Errorf("create simulation: %w", apperrors.MapDBError(err))
	}
	s.logger.InfoContext(ctx, "simulation created",
		"simulation_id", sim.ID, "owner_id", ownerID, "model_type", sim.ModelType)

	return s.start(ctx, sim.ID)
}

// List returns a page of the owner's simulations, newest first.
func (s *SimulationService) List(
	ctx context.Context,
	ownerID string,
	opts model.SimulationListOptions,
) (*model.SimulationPage, error) {
	opts.OwnerID = ownerID
	if opts.Offset < 0 {
		return nil, apperrors.ValidationField("skip", "skip must be non-negative")
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = DefaultListLimit
	case opts.Limit > MaxListLimit:
		opts.Limit = MaxListLimit
	}

	sims, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	total, err := s.repo.Count(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("count simulations: %w", err)
	}
	if sims == nil {
		sims = []*model.Simulation{}
	}
	return &model.SimulationPage{Simulations: sims, Total: total, Skip: opts.Offset, Limit: opts.Limit}, nil
}

// Get returns one of the owner's simulations.
func (s *SimulationService) Get(ctx context.Context, ownerID, id string) (*model.Simulation, error) {
	return ownedSimulation(ctx, s.repo, ownerID, id)
}

// ownedSimulation loads a simulation and hides it from everyone but its owner.
func ownedSimulation(
	ctx context.Context,
	repo core.SimulationRepository,
	ownerID, id string,
) (*model.Simulation, error) {
	sim, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	if sim.OwnerID != ownerID {
		return nil, apperrors.NotFoundf("simulation %s not found", id)
	}
	return sim, nil
}

// Update changes name, description or configuration of a non-running simulation.
func (s *SimulationService) Update(
	ctx context.Context,
	ownerID, id string,
	req *model.UpdateSimulationRequest,
) (*model.Simulation, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	sim, err := s.repo.Update(ctx, id, *req)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return sim, nil
}

// Delete removes a non-running simulation together with its results and scenarios.
func (s *SimulationService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id)
	}
	s.cache.Invalidate(ctx, id)
	s.logger.InfoContext(ctx, "simulation deleted", "simulation_id", id)
	return nil
}

// Run starts a new attempt of a simulation that is not running.
func (s *SimulationService) Run(ctx context.Context, ownerID, id string) (*model.Simulation, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.start(ctx, id)
}

// start records the new attempt and hands it to the dispatcher. A refused
// dispatch fails the attempt it just started.
func (s *SimulationService) start(ctx context.Context, id string) (*model.Simulation, error) {
	sim, err := s.sm.RequestRun(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)

	run := model.NewRun(sim)
	if err := s.dispatcher.Dispatch(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "dispatch refused",
			"simulation_id", id, "attempt", sim.Attempt, "error", err)
		if s.metrics != nil {
			s.metrics.Count(metrics.MetricDispatchRejected, 1, map[string]string{"model_type": string(sim.ModelType)})
		}
		cause := apperrors.Wrap(err, apperrors.ErrCodeInternal, "dispatch simulation")
		if _, rerr := s.sm.ReportOutcome(context.WithoutCancel(ctx), run, Failure(cause)); rerr != nil {
			return nil, errors.Join(cause, rerr)
		}
		return s.reload(ctx, sim)
	}
	return sim, nil
}

// Stop cancels the running attempt and signals its executor if it runs in this process.
func (s *SimulationService) Stop(ctx context.Context, ownerID, id string) (*model.Simulation, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	sim, err := s.sm.RequestStop(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.dispatcher.Cancel(id) {
		s.logger.DebugContext(ctx, "signalled running executor", "simulation_id", id)
	}
	return sim, nil
}

// Stats counts the owner's simulations by status.
func (s *SimulationService) Stats(ctx context.Context, ownerID string) (*model.SimulationStats, error) {
	counts, err := s.repo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count simulations by status: %w", err)
	}
	recent, err := s.repo.List(ctx, model.SimulationListOptions{OwnerID: ownerID, Limit: recentLimit})
	if err != nil {
		return nil, fmt.Errorf("list recent simulations: %w", err)
	}
	if recent == nil {
		recent = []*model.Simulation{}
	}

	stats := &model.SimulationStats{
		Running:   counts[model.SimulationStatusRunning],
		Completed: counts[model.SimulationStatusCompleted],
		Failed:    counts[model.SimulationStatusFailed],
		Pending:   counts[model.SimulationStatusPending],
		Cancelled: counts[model.SimulationStatusCancelled],
		Recent:    recent,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// ResultQuery selects and projects result sets.
type ResultQuery struct {
	// Type limits the response to one result type when set.
	Type model.ResultType
	// Expression is an optional JMESPath projection over the result set list.
	Expression string
}

// Results returns the stored result sets of a simulation, optionally projected.
func (s *SimulationService) Results(ctx context.Context, ownerID, id string, q ResultQuery) (any, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, apperrors.ValidationField("result_type", fmt.Sprintf("unknown result type '%s'", q.Type))
	}
	if err := s.query.Validate(q.Expression); err != nil {
		return nil, apperrors.ValidationField("query", fmt.Sprintf("invalid query: %v", err))
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	sets, err := s.loadResults(ctx, id, q.Type)
	if err != nil {
		return nil, err
	}
	return results.Project(s.query, q.Expression, sets)
}

// Export renders all result sets of a simulation in format.
func (s *SimulationService) Export(
	ctx context.Context,
	ownerID, id string,
	format results.ExportFormat,
) ([]byte, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	sets, err := s.loadResults(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return results.ExportBytes(format, sets)
}

// Summary condenses the annual and indicator results of a simulation.
func (s *SimulationService) Summary(ctx context.Context, ownerID, id string) (*model.ResultSummary, error) {
	sim, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sets, err := s.loadResults(ctx, id, "")
	if err != nil {
		return nil, err
	}

	summary := &model.ResultSummary{
		SimulationID: id,
		Status:       sim.Status,
		KeyMetrics:   map[string]float64{},
		Indicators:   model.Indicators{},
		AvailableAt:  sim.CompletedAt,
	}
	for _, set := range sets {
		summary.Synthetic = summary.Synthetic || set.Metadata.Synthetic
		switch set.ResultType {
		case model.ResultTypeAnnual:
			var annual model.AnnualSummary
			if err := json.Unmarshal(set.Data, &annual); err != nil {
				return nil, fmt.Errorf("decode annual results: %w", err)
			}
			summary.KeyMetrics = keyMetrics(annual)
		case model.ResultTypeIndicators:
			if err := json.Unmarshal(set.Data, &summary.Indicators); err != nil {
				return nil, fmt.Errorf("decode indicators: %w", err)
			}
		}
	}
	return summary, nil
}

func keyMetrics(a model.AnnualSummary) map[string]float64 {
	return map[string]float64{
		"total_precipitation":      a.TotalPrecipitation,
		"total_evapotranspiration": a.TotalEvapotranspiration,
		"total_runoff":             a.TotalRunoff,
		"total_infiltration":       a.TotalInfiltration,
		"mean_temperature":         a.MeanTemperature,
		"runoff_coefficient":       a.RunoffCoefficient,
		"water_balance_error":      a.WaterBalanceError,
		"drought_days":             float64(a.DroughtDays),
		"flood_days":               float64(a.FloodDays),
	}
}

// loadResults reads result sets through the cache. An empty rt loads every type.
func (s *SimulationService) loadResults(ctx context.Context, id string, rt model.ResultType) ([]*model.ResultSet, error) {
	if sets, ok := s.cache.Get(ctx, id, rt); ok {
		return sets, nil
	}
	var types []model.ResultType
	if rt != "" {
		types = append(types, rt)
	}
	sets, err := s.results.ListBySimulation(ctx, id, types...)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	if len(sets) == 0 {
		return nil, apperrors.NotFoundf("no results available for simulation %s", id)
	}
	s.cache.Put(ctx, id, rt, sets)
	return sets, nil
}

func (s *SimulationService) reload(ctx context.Context, sim *model.Simulation) (*model.Simulation, error) {
	fresh, err := s.repo.GetByID(ctx, sim.ID)
	if err != nil {
		return nil, mapRepoError(err, sim.ID)
	}
	return fresh, nil
}
