// Package model defines the core data types shared by the hydrosim services.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SimulationStatus represents the lifecycle state of a simulation job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SimulationStatus string

const (
	// SimulationStatusPending indicates the job was accepted but has not started.
	SimulationStatusPending SimulationStatus = "pending"
	// SimulationStatusRunning indicates an attempt is executing.
	SimulationStatusRunning SimulationStatus = "running"
	// SimulationStatusCompleted indicates the latest attempt produced results.
	SimulationStatusCompleted SimulationStatus = "completed"
	// SimulationStatusFailed indicates the latest attempt failed.
	SimulationStatusFailed SimulationStatus = "failed"
	// SimulationStatusCancelled indicates the latest attempt was stopped by the owner.
	SimulationStatusCancelled SimulationStatus = "cancelled"
)

// Valid returns true if the status is a known lifecycle state.
func (s SimulationStatus) Valid() bool {
	switch s {
	case SimulationStatusPending, SimulationStatusRunning, SimulationStatusCompleted,
		SimulationStatusFailed, SimulationStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no executor can move the job out of this state.
func (s SimulationStatus) Terminal() bool {
	return s == SimulationStatusCompleted || s == SimulationStatusFailed || s == SimulationStatusCancelled
}

// UnmarshalText accepts the status case-insensitively.
func (s *SimulationStatus) UnmarshalText(text []byte) error {
	v := SimulationStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid simulation status: %q", string(text))
	}
	*s = v
	return nil
}

// ModelType selects which sub-models participate in a run.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ModelType string

const (
	ModelTypePhysical          ModelType = "PHYSICAL"
	ModelTypeSociohydrological ModelType = "SOCIOHYDROLOGICAL"
	ModelTypeAnthropocene      ModelType = "ANTHROPOCENE"
	ModelTypeArtificialAquifer ModelType = "ARTIFICIAL_AQUIFER"
	ModelTypeIntegrated        ModelType = "INTEGRATED"
)

// Valid returns true if the model type is supported.
func (m ModelType) Valid() bool {
	switch m {
	case ModelTypePhysical, ModelTypeSociohydrological, ModelTypeAnthropocene,
		ModelTypeArtificialAquifer, ModelTypeIntegrated:
		return true
	}
	return false
}

// UnmarshalText accepts the model type case-insensitively.
func (m *ModelType) UnmarshalText(text []byte) error {
	v := ModelType(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid model type: %q", string(text))
	}
	*m = v
	return nil
}

// TimeStep is the reporting resolution requested for a run.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TimeStep string

const (
	TimeStepDaily   TimeStep = "DAILY"
	TimeStepMonthly TimeStep = "MONTHLY"
	TimeStepAnnual  TimeStep = "ANNUAL"
)

// Valid returns true if the time step is supported.
func (t TimeStep) Valid() bool {
	return t == TimeStepDaily || t == TimeStepMonthly || t == TimeStepAnnual
}

// UnmarshalText accepts the time step case-insensitively.
func (t *TimeStep) UnmarshalText(text []byte) error {
	v := TimeStep(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid time step: %q", string(text))
	}
	*t = v
	return nil
}

// Sentinel errors returned by simulation repositories.
var (
	ErrSimulationNotFound   = errors.New("simulation not found")
	ErrSimulationRunning    = errors.New("simulation is running")
	ErrSimulationNotRunning = errors.New("simulation is not running")
)

// Simulation is a persisted simulation job.
type Simulation struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"owner_id"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Status        SimulationStatus `json:"status"`
	ModelType     ModelType        `json:"model_type"`
	TimeStep      TimeStep         `json:"time_step"`
	StartDate     Date             `json:"start_date"`
	EndDate       Date             `json:"end_date"`
	Configuration SimulationConfig `json:"configuration"`
	Progress      float64          `json:"progress"`
	Attempt       int              `json:"attempt"`
	ErrorMessage  *string          `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// Period returns the simulated date range.
func (s *Simulation) Period() Period {
	return Period{Start: s.StartDate, End: s.EndDate}
}

// Run identifies one attempt of a simulation. Progress and outcome reports
// carry it so reports from a superseded attempt can be ignored.
type Run struct {
	SimulationID string
	Attempt      int
	Simulation   *Simulation
}

// NewRun snapshots the current attempt of sim.
func NewRun(sim *Simulation) Run {
	return Run{SimulationID: sim.ID, Attempt: sim.Attempt, Simulation: sim}
}

// SimulationListOptions filters and paginates simulation listings.
type SimulationListOptions struct {
	OwnerID string
	Status  *SimulationStatus
	Limit   int
	Offset  int
}

// SimulationPage is a page of simulations plus the unpaginated total.
type SimulationPage struct {
	Simulations []*Simulation `json:"simulations"`
	Total       int           `json:"total"`
	Skip        int           `json:"skip"`
	Limit       int           `json:"limit"`
}

// SimulationStats summarises an owner's simulations.
type SimulationStats struct {
	Total     int           `json:"total_simulations"`
	Running   int           `json:"running_simulations"`
	Completed int           `json:"completed_simulations"`
	Failed    int           `json:"failed_simulations"`
	Pending   int           `json:"pending_simulations"`
	Cancelled int           `json:"cancelled_simulations"`
	Recent    []*Simulation `json:"recent_simulations"`
}
