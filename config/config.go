// Package config loads the hydrosim configuration from environment variables.
package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Owner identification
//   - database.go: Store, database and cache configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode, executor and reaper configuration
//   - observability.go: Metrics and failure notifications
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Owner OwnerConfig

	// Storage configuration
	Store    StoreConfig
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services.
	// Valid values: http, executor, reaper
	Services string `env:"SERVICES" envDefault:"http,executor,reaper"`

	Executor   ExecutorConfig
	HydroModel HydroModelConfig
	Reaper     ReaperConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Owner.Sanitize()
	c.Store.Sanitize()
	c.Cache.Sanitize()
	c.HTTP.Sanitize()
	c.Executor.Sanitize()
	c.HydroModel.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
	c.alignRunningMaxAge()

	c.detectDevMode()
}

// runningAgeMargin is the slack the reaper leaves an attempt past its executor
// timeout, enough for the timed-out attempt to record its own failure.
const runningAgeMargin = 5 * time.Minute

// alignRunningMaxAge keeps the reaper from failing attempts the executor is
// still allowed to run.
func (c *AppConfig) alignRunningMaxAge() {
	if floor := c.Executor.Timeout + runningAgeMargin; c.Reaper.RunningMaxAge < floor {
		c.Reaper.RunningMaxAge = floor
	}
}

// detectDevMode checks APP_ENV as a fallback for DEV.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) isEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.isEnabled(ServiceModeHTTP) }

// IsExecutorEnabled returns true if simulations are executed in this process.
func (c *AppConfig) IsExecutorEnabled() bool { return c.isEnabled(ServiceModeExecutor) }

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.isEnabled(ServiceModeReaper) }
