// Package core holds the ports between the simulation services and their adapters.
package core

import (
	"context"
	"time"

	"github.com/target/hydrosim/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces; the Postgres and SQLite stores
// provide implementations.

// SimulationRepository defines persistence for simulation jobs.
//
// Every state-changing method is a single conditional write so that concurrent
// callers observe read-modify-write atomicity per simulation id.
type SimulationRepository interface {
	Create(ctx context.Context, sim *model.Simulation) error
	GetByID(ctx context.Context, id string) (*model.Simulation, error)
	List(ctx context.Context, opts model.SimulationListOptions) ([]*model.Simulation, error)
	Count(ctx context.Context, opts model.SimulationListOptions) (int, error)
	CountByStatus(ctx context.Context, ownerID string) (map[model.SimulationStatus]int, error)
	// Update applies req unless the simulation is running (model.ErrSimulationRunning).
	Update(ctx context.Context, id string, req model.UpdateSimulationRequest) (*model.Simulation, error)
	// Delete removes the simulation and its results unless it is running.
	Delete(ctx context.Context, id string) error

	// BeginRun moves a non-running simulation to RUNNING, bumps the attempt,
	// clears the previous outcome and deletes previous results.
	BeginRun(ctx context.Context, id string) (*model.Simulation, error)
	// Cancel moves a RUNNING simulation to CANCELLED (model.ErrSimulationNotRunning otherwise).
	Cancel(ctx context.Context, id string) (*model.Simulation, error)
	// UpdateProgress raises progress monotonically while the attempt is running.
	UpdateProgress(ctx context.Context, run model.Run, pct float64) (bool, error)
	// Complete stores results and marks the attempt COMPLETED in one transaction.
	Complete(ctx context.Context, run model.Run, results []*model.ResultSet) (bool, error)
	// Fail marks the attempt FAILED with msg.
	Fail(ctx context.Context, run model.Run, msg string) (bool, error)
}

// ResultRepository reads persisted result sets.
type ResultRepository interface {
	// ListBySimulation returns result sets in canonical type order; types filters when non-empty.
	ListBySimulation(ctx context.Context, simulationID string, types ...model.ResultType) ([]*model.ResultSet, error)
}

// ReaperRepository defines the cleanup operations run by the reaper.
type ReaperRepository interface {
	// FailStaleRunning fails RUNNING simulations started before maxAge ago.
	// Processes up to batchSize rows per call and returns the affected ids.
	FailStaleRunning(ctx context.Context, maxAge time.Duration, batchSize int) ([]string, error)

	// DeleteOldSimulations deletes finished simulations in the given status older than maxAge.
	DeleteOldSimulations(ctx context.Context, params DeleteOldSimulationsParams) (int64, error)
}

// DeleteOldSimulationsParams groups parameters for ReaperRepository.DeleteOldSimulations.
type DeleteOldSimulationsParams struct {
	Status    model.SimulationStatus
	MaxAge    time.Duration
	BatchSize int
}

// ScenarioRepository persists the parameter variants attached to a simulation.
// Scenarios are deleted with their simulation.
type ScenarioRepository interface {
	CreateScenario(ctx context.Context, sc *model.Scenario) error
	// ListScenarios returns the scenarios of a simulation, oldest first.
	ListScenarios(ctx context.Context, simulationID string) ([]*model.Scenario, error)
	// DeleteScenario removes one scenario of simulationID (model.ErrScenarioNotFound otherwise).
	DeleteScenario(ctx context.Context, simulationID, scenarioID string) error
}

// ConfigurationRepository persists saved model configurations.
type ConfigurationRepository interface {
	CreateConfiguration(ctx context.Context, cfg *model.ModelConfiguration) error
	// ListConfigurations returns the owner's configurations plus every public one, oldest first.
	ListConfigurations(ctx context.Context, ownerID string) ([]*model.ModelConfiguration, error)
	// DeleteConfiguration removes a configuration created by ownerID (model.ErrConfigurationNotFound otherwise).
	DeleteConfiguration(ctx context.Context, ownerID, id string) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	SimulationRepository
	ResultRepository
	ReaperRepository
	ScenarioRepository
	ConfigurationRepository
}

// Dispatcher hands a started attempt to an executor.
type Dispatcher interface {
	Dispatch(ctx context.Context, run model.Run) error
	// Cancel signals an in-process execution of simulationID, if any.
	Cancel(simulationID string) bool
}

// FailureNotifier receives FAILED transitions. cause.Error() is the stored error message.
type FailureNotifier interface {
	NotifySimulationFailure(ctx context.Context, sim *model.Simulation, cause error)
}
