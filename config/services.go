package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeExecutor runs simulations dispatched by this process.
	ServiceModeExecutor ServiceMode = "executor"
	// ServiceModeReaper runs the stale run and retention cleanup loop.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeExecutor,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeExecutor, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, executor, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ExecutorConfig controls the in-process simulation worker pool.
type ExecutorConfig struct {
	// Concurrency is the number of simulations executed at once.
	Concurrency int `env:"EXECUTOR_CONCURRENCY" envDefault:"2"`

	// QueueSize is how many dispatched simulations may wait for a worker.
	QueueSize int `env:"EXECUTOR_QUEUE_SIZE" envDefault:"64"`

	// Timeout bounds a single attempt.
	Timeout time.Duration `env:"EXECUTOR_TIMEOUT" envDefault:"10m"`

	// Scorer selects the indicator scorer: formula or constant.
	Scorer string `env:"EXECUTOR_SCORER" envDefault:"formula"`
}

// Sanitize applies guardrails to executor configuration values.
func (e *ExecutorConfig) Sanitize() {
	if e.Concurrency < 1 {
		e.Concurrency = 1
	}
	if e.QueueSize < 1 {
		e.QueueSize = 1
	}
	if e.Timeout < time.Second {
		e.Timeout = time.Second
	}
	e.Scorer = strings.ToLower(strings.TrimSpace(e.Scorer))
	if e.Scorer != "constant" {
		e.Scorer = "formula"
	}
}

// HydroModelConfig controls the composite model adapter.
type HydroModelConfig struct {
	// FailSubModel forces the named sub-model ("*" for all) to fail, exercising the fallback path.
	FailSubModel string `env:"HYDROMODEL_FAIL_SUBMODEL" envDefault:""`

	// FailWithPanic makes the injected failure a panic instead of an error.
	FailWithPanic bool `env:"HYDROMODEL_FAIL_PANIC" envDefault:"false"`
}

// Sanitize trims the fault injection target.
func (h *HydroModelConfig) Sanitize() {
	h.FailSubModel = strings.TrimSpace(h.FailSubModel)
}

// ReaperConfig contains reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// RunningMaxAge is how long an attempt may stay RUNNING before it is failed.
	// Catches attempts orphaned by a crash.
	RunningMaxAge time.Duration `env:"REAPER_RUNNING_MAX_AGE" envDefault:"1h"`

	// CompletedMaxAge is the retention for completed simulations.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"2160h"` // 90 days

	// FailedMaxAge is the retention for failed simulations.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"720h"` // 30 days

	// CancelledMaxAge is the retention for cancelled simulations.
	CancelledMaxAge time.Duration `env:"REAPER_CANCELLED_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.RunningMaxAge < 5*time.Minute {
		r.RunningMaxAge = 5 * time.Minute
	}
	if r.CompletedMaxAge < 1*time.Hour {
		r.CompletedMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	if r.CancelledMaxAge < 1*time.Hour {
		r.CancelledMaxAge = 1 * time.Hour
	}

	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
