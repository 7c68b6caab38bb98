package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
)

// ScenarioServiceOptions groups dependencies for ScenarioService.
type ScenarioServiceOptions struct {
	Simulations core.SimulationRepository // Required: ownership lookups
	Scenarios   core.ScenarioRepository   // Required: scenario repository
	Logger      *slog.Logger              // Optional: structured logger
}

// ScenarioService manages the scenarios attached to an owner's simulations.
// Scenarios can be added and removed in any simulation status.
type ScenarioService struct {
	simulations core.SimulationRepository
	scenarios   core.ScenarioRepository
	logger      *slog.Logger
}

// NewScenarioService constructs a ScenarioService.
func NewScenarioService(opts ScenarioServiceOptions) (*ScenarioService, error) {
	if opts.Simulations == nil {
		return nil, errors.New("SimulationRepository is required")
	}
	if opts.Scenarios == nil {
		return nil, errors.New("ScenarioRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ScenarioService{
		simulations: opts.Simulations,
		scenarios:   opts.Scenarios,
		logger:      logger.With("component", "scenario_service"),
	}, nil
}

// List returns the scenarios of one of the owner's simulations, oldest first.
func (s *ScenarioService) List(ctx context.Context, ownerID, simulationID string) ([]*model.Scenario, error) {
	if _, err := ownedSimulation(ctx, s.simulations, ownerID, simulationID); err != nil {
		return nil, err
	}
	out, err := s.scenarios.ListScenarios(ctx, simulationID)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if out == nil {
		out = []*model.Scenario{}
	}
	return out, nil
}

// Create validates req and attaches a new scenario to the simulation.
func (s *ScenarioService) Create(
	ctx context.Context,
	ownerID, simulationID string,
	req *model.CreateScenarioRequest,
) (*model.Scenario, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := ownedSimulation(ctx, s.simulations, ownerID, simulationID); err != nil {
		return nil, err
	}

	sc := &model.Scenario{
		SimulationID: simulationID,
		Name:         req.Name,
		Description:  req.Description,
		Parameters:   req.Parameters,
		IsBaseline:   req.IsBaseline,
	}
	if err := s.scenarios.CreateScenario(ctx, sc); err != nil {
		return nil, fmt.Errorf("create scenario: %w", apperrors.MapDBError(err))
	}
	s.logger.InfoContext(ctx, "scenario created",
		"simulation_id", simulationID, "scenario_id", sc.ID, "baseline", sc.IsBaseline)
	return sc, nil
}

// Delete removes one scenario of the owner's simulation.
func (s *ScenarioService) Delete(ctx context.Context, ownerID, simulationID, scenarioID string) error {
	if _, err := ownedSimulation(ctx, s.simulations, ownerID, simulationID); err != nil {
		return err
	}
	err := s.scenarios.DeleteScenario(ctx, simulationID, scenarioID)
	if errors.Is(err, model.ErrScenarioNotFound) {
		return apperrors.NotFoundf("scenario %s not found", scenarioID)
	}
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	s.logger.InfoContext(ctx, "scenario deleted", "simulation_id", simulationID, "scenario_id", scenarioID)
	return nil
}
