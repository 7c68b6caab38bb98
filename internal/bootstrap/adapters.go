package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/hydrosim/config"
	"github.com/target/hydrosim/internal/adapters/reaper"
	httpx "github.com/target/hydrosim/internal/http"
)

// shutdownWaitTimeout is the maximum time to wait for background services to stop.
const shutdownWaitTimeout = 30 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Enabled  map[config.ServiceMode]bool
	Checks   map[string]httpx.HealthCheck
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeExecutor,
			name: "simulation runner",
			start: func(ctx context.Context) error {
				if cfg.Services.Runner == nil {
					return errors.New("executor enabled without an in-process runner")
				}
				return cfg.Services.Runner.Run(ctx)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					Services: cfg.Services,
					Config:   cfg.Config.Reaper,
					Logger:   cfg.Logger,
				})
			},
		},
	}
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	Services ServiceContainer
	Config   config.ReaperConfig
	Logger   *slog.Logger
}

// RunReaper starts the reaper service. Reaped attempts still executing in
// this process are cancelled through the dispatcher.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := NewReaperRunner(cfg)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// NewReaperRunner wires the reaper over the container's store and dispatcher.
func NewReaperRunner(cfg ReaperConfig) (*reaper.Runner, error) {
	if cfg.Services.Store == nil {
		return nil, errors.New("reaper requires a store")
	}
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Repo:      cfg.Services.Store,
		Config:    cfg.Config,
		Logger:    cfg.Logger,
		Metrics:   cfg.Services.Observability.MetricsSink,
		Canceller: cfg.Services.Dispatcher,
	})
	if err != nil {
		return nil, fmt.Errorf("create reaper runner: %w", err)
	}
	return runner, nil
}

// RunServicesWithShutdown starts every enabled service and blocks until ctx is
// cancelled or a service fails. The HTTP server is drained before background
// services are stopped, so accepted requests can still dispatch attempts.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Logger = logger
	}

	// Background services outlive ctx until the HTTP server has drained.
	bgParent, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()
	bg, bgCtx := errgroup.WithContext(bgParent)

	for _, svc := range buildBackgroundServices(cfg) {
		if !cfg.Enabled[svc.mode] {
			continue
		}
		bg.Go(func() error {
			if err := svc.start(bgCtx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(bgCtx, svc.name+" stopped")
			return nil
		})
		logger.InfoContext(ctx, "background service started", "service", svc.name, "mode", svc.mode)
	}

	var server *http.Server
	serveErr := make(chan error, 1)
	if cfg.Enabled[config.ServiceModeHTTP] {
		server = NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Checks:   cfg.Checks,
			Logger:   logger,
		})
		go func() { serveErr <- ServeHTTP(server, logger) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down services...")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	case <-bgCtx.Done():
		// A background service failed; bg.Wait reports it.
	}

	if err := ShutdownHTTPServer(ctx, server, cfg.Config.HTTP.ShutdownTimeout, logger); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	stopBackground()
	return errors.Join(runErr, waitForBackground(bg, logger))
}

// waitForBackground waits for background services to finish with timeout.
func waitForBackground(bg *errgroup.Group, logger *slog.Logger) error {
	done := make(chan error, 1)
	go func() { done <- bg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for background services to stop")
		return errors.New("background services did not stop in time")
	}
}
