package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/hydrosim/config"
	"github.com/target/hydrosim/internal/adapters/simrunner"
	"github.com/target/hydrosim/internal/artifact"
	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/observability/notify/pagerduty"
	"github.com/target/hydrosim/internal/observability/notify/slack"
	"github.com/target/hydrosim/internal/observability/statsd"
	"github.com/target/hydrosim/internal/results"
	"github.com/target/hydrosim/internal/service"
	"github.com/target/hydrosim/internal/service/failurenotifier"
)

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Store        *Storage
	Cache        *core.ResultCache
	StateMachine *service.StateMachine
	Executor     *service.Executor
	// Runner is the in-process queue; nil for inline execution.
	Runner        *simrunner.Runner
	Dispatcher    core.Dispatcher
	Simulations   *service.SimulationService
	Scenarios     *service.ScenarioService
	Catalog       *service.CatalogService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// MetricsSink is nil when metrics are disabled.
	MetricsSink     statsd.Sink
	metricsClient   *statsd.Client
	FailureNotifier *failurenotifier.Service
}

// Close releases the metrics connection, if any.
func (o ObservabilityContainer) Close() error {
	if o.metricsClient == nil {
		return nil
	}
	return o.metricsClient.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	Store       *Storage
	RedisClient redis.UniversalClient // Optional: enables the result cache
	Logger      *slog.Logger
	// Inline executes attempts synchronously inside Create and Run, for one-shot commands.
	Inline bool
}

// NewServices wires the domain services over an opened store.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Store == nil {
		return ServiceContainer{}, errors.New("store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	obs := buildObservability(logger, appCfg.Observability)
	cache := newResultCache(deps.RedisClient, appCfg.Cache, logger)

	sm, err := service.NewStateMachine(service.StateMachineOptions{
		Repo:     deps.Store,
		Notifier: obs.FailureNotifier,
		Cache:    cache,
		Metrics:  obs.MetricsSink,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire state machine: %w", err)
	}

	exec, err := service.NewExecutor(service.ExecutorOptions{
		StateMachine: sm,
		Adapter:      newModelAdapter(appCfg, logger),
		Scorer:       newScorer(appCfg.Executor.Scorer),
		Timeout:      appCfg.Executor.Timeout,
		Metrics:      obs.MetricsSink,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire executor: %w", err)
	}

	container := ServiceContainer{
		Store:         deps.Store,
		Cache:         cache,
		StateMachine:  sm,
		Executor:      exec,
		Observability: obs,
	}
	if deps.Inline {
		container.Dispatcher = &simrunner.Inline{Executor: exec}
	} else {
		runner, err := simrunner.NewRunner(simrunner.RunnerOptions{
			Executor:    exec,
			Logger:      logger,
			Metrics:     obs.MetricsSink,
			Concurrency: appCfg.Executor.Concurrency,
			QueueSize:   appCfg.Executor.QueueSize,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("wire simulation runner: %w", err)
		}
		container.Runner = runner
		container.Dispatcher = runner
	}

	sims, err := service.NewSimulationService(service.SimulationServiceOptions{
		Repo:         deps.Store,
		Results:      deps.Store,
		StateMachine: sm,
		Dispatcher:   container.Dispatcher,
		Cache:        container.Cache,
		Metrics:      obs.MetricsSink,
		Logger:       logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire simulation service: %w", err)
	}
	container.Simulations = sims

	scenarios, err := service.NewScenarioService(service.ScenarioServiceOptions{
		Simulations: deps.Store,
		Scenarios:   deps.Store,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire scenario service: %w", err)
	}
	container.Scenarios = scenarios

	catalog, err := service.NewCatalogService(service.CatalogServiceOptions{
		Configurations: deps.Store,
		Logger:         logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire catalog service: %w", err)
	}
	container.Catalog = catalog
	return container, nil
}

// newModelAdapter builds the composite model, writing artifacts below
// ARTIFACTS_DIR when set and injecting configured sub-model faults.
func newModelAdapter(cfg *config.AppConfig, logger *slog.Logger) *hydromodel.Adapter {
	opts := hydromodel.AdapterOptions{Logger: logger}
	if dir := cfg.Store.ArtifactsDir; dir != "" {
		opts.Sink = artifact.LocalFS{Root: dir}
	}
	if target := cfg.HydroModel.FailSubModel; target != "" {
		logger.Warn("sub-model fault injection enabled",
			"target", target, "panic", cfg.HydroModel.FailWithPanic)
		opts.Decorate = hydromodel.FaultInjector{Target: target, Panic: cfg.HydroModel.FailWithPanic}.Decorate
	}
	return hydromodel.NewAdapter(opts)
}

//nolint:ireturn // the scorer is selected by configuration.
func newScorer(name string) results.IndicatorScorer {
	if name == "constant" {
		return results.ConstantScorer{}
	}
	return results.FormulaScorer{}
}

func newResultCache(client redis.UniversalClient, cfg config.CacheConfig, logger *slog.Logger) *core.ResultCache {
	if client == nil {
		return nil
	}
	return core.NewResultCache(core.ResultCacheOptions{
		Cache:  data.NewRedisCacheRepo(client),
		Config: core.ResultCacheConfig{TTL: cfg.TTL},
		Logger: logger,
	})
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obs := ObservabilityContainer{
		FailureNotifier: buildFailureNotifier(logger, cfg.Notifications),
	}

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:       true,
			Address:       cfg.Metrics.StatsdAddress,
			Prefix:        cfg.Metrics.Prefix,
			Logger:        logger,
			GlobalTags:    cfg.Metrics.Tags,
			FlushInterval: cfg.Metrics.FlushInterval,
			MaxPacketSize: cfg.Metrics.MaxPacketSize,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			obs.metricsClient = client
			obs.MetricsSink = client
		}
	}
	return obs
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: logger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:          cfg.Slack.WebhookURL,
			Channel:             cfg.Slack.Channel,
			Username:            cfg.Slack.Username,
			Timeout:             cfg.Timeout,
			RetryLimit:          cfg.RetryLimit,
			SimulationURLPrefix: cfg.Slack.SimulationURLPrefix,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:  logger,
		Sinks:   sinks,
		Timeout: cfg.Timeout * time.Duration(cfg.RetryLimit+1),
	})
}
