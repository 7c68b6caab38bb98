package model

import (
	"errors"
	"strings"
	"time"
)

// ErrConfigurationNotFound is returned when a saved configuration does not exist.
var ErrConfigurationNotFound = errors.New("model configuration not found")

// ModelConfiguration is a saved, reusable set of model parameters. Public
// configurations are visible to every owner; the rest only to their creator.
type ModelConfiguration struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	ModelType   ModelType        `json:"model_type"`
	Parameters  SimulationConfig `json:"parameters"`
	IsTemplate  bool             `json:"is_template"`
	IsPublic    bool             `json:"is_public"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CreateConfigurationRequest is the payload accepted when saving a configuration.
type CreateConfigurationRequest struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	ModelType   ModelType        `json:"model_type,omitempty"`
	Parameters  SimulationConfig `json:"parameters"`
	IsTemplate  bool             `json:"is_template"`
	IsPublic    bool             `json:"is_public"`
}

// Normalize fills defaults and trims whitespace.
func (r *CreateConfigurationRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.ModelType == "" {
		r.ModelType = ModelTypeIntegrated
	}
}

// Validate validates the request fields.
func (r *CreateConfigurationRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if !r.ModelType.Valid() {
		return invalidModelType()
	}
	return r.Parameters.Validate()
}
