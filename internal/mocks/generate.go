// Package mocks provides mock implementations for testing the hydrosim services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockSimulationRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(sim, nil)
package mocks

// Generate mock for SimulationRepository interface from internal/core package.
// This creates MockSimulationRepository with methods for all SimulationRepository interface methods:
// Create, GetByID, List, Count, CountByStatus, Update, Delete, BeginRun, Cancel, UpdateProgress, Complete, Fail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=simulation_repository_mock.go github.com/target/hydrosim/internal/core SimulationRepository

// Generate mock for ResultRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=result_repository_mock.go github.com/target/hydrosim/internal/core ResultRepository

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods: FailStaleRunning, DeleteOldSimulations
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/target/hydrosim/internal/core ReaperRepository

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods: Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/hydrosim/internal/core CacheRepository

// Generate mock for Dispatcher interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dispatcher_mock.go github.com/target/hydrosim/internal/core Dispatcher

// Generate mock for FailureNotifier interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=failure_notifier_mock.go github.com/target/hydrosim/internal/core FailureNotifier

// Generate mock for ScenarioRepository interface from internal/core package.
// This creates MockScenarioRepository with methods: CreateScenario, ListScenarios, DeleteScenario
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=scenario_repository_mock.go github.com/target/hydrosim/internal/core ScenarioRepository

// Generate mock for ConfigurationRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=configuration_repository_mock.go github.com/target/hydrosim/internal/core ConfigurationRepository
