package model

import (
	"errors"
	"strings"
	"time"
)

// DefaultScenarioName is used when a scenario is created without a name.
const DefaultScenarioName = "New Scenario"

// ErrScenarioNotFound is returned when a scenario does not exist under the given simulation.
var ErrScenarioNotFound = errors.New("scenario not found")

// Scenario is a named parameter variant attached to a simulation. Scenarios
// are removed together with their simulation.
type Scenario struct {
	ID           string           `json:"id"`
	SimulationID string           `json:"simulation_id"`
	Name         string           `json:"name"`
	Description  *string          `json:"description,omitempty"`
	Parameters   SimulationConfig `json:"parameters"`
	IsBaseline   bool             `json:"is_baseline"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

// CreateScenarioRequest is the payload accepted when adding a scenario.
type CreateScenarioRequest struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Parameters  SimulationConfig `json:"parameters"`
	IsBaseline  bool             `json:"is_baseline"`
}

// Normalize trims the name and falls back to DefaultScenarioName.
func (r *CreateScenarioRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = DefaultScenarioName
	}
}

// Validate validates the request fields.
func (r *CreateScenarioRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	return r.Parameters.Validate()
}
