// Package bootstrap wires configuration, storage, services and background
// runners into a running hydrosim process.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/hydrosim/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ResolveServices validates the SERVICES list and returns the modes this
// process runs. The HTTP API starts attempts on the in-process dispatcher, so
// enabling http without executor turns the executor on with a warning.
func ResolveServices(cfg *config.AppConfig, logger *slog.Logger) (map[config.ServiceMode]bool, error) {
	if cfg == nil {
		return nil, errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}
	if len(services) == 0 {
		return nil, errors.New("no services enabled")
	}

	if services[config.ServiceModeHTTP] && !services[config.ServiceModeExecutor] {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("http service requires the executor; enabling it",
			"services", cfg.Services)
		services[config.ServiceModeExecutor] = true
	}
	return services, nil
}

// EnabledServiceNames lists enabled modes in their canonical order, for logging.
func EnabledServiceNames(services map[config.ServiceMode]bool) []string {
	names := make([]string, 0, len(services))
	for _, mode := range config.ValidServiceModes() {
		if services[mode] {
			names = append(names, string(mode))
		}
	}
	return names
}
