package model

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/target/hydrosim/internal/errors"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 1000
)

func invalidModelType() error {
	return apperrors.ValidationField(
		"model_type",
		"model_type must be one of: PHYSICAL, SOCIOHYDROLOGICAL, ANTHROPOCENE, ARTIFICIAL_AQUIFER, INTEGRATED",
	)
}

// CreateSimulationRequest is the payload accepted by createJob.
type CreateSimulationRequest struct {
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	ModelType     ModelType        `json:"model_type,omitempty"`
	TimeStep      TimeStep         `json:"time_step,omitempty"`
	StartDate     Date             `json:"start_date"`
	EndDate       Date             `json:"end_date"`
	Configuration SimulationConfig `json:"configuration"`
}

// Normalize fills defaults and trims whitespace.
func (r *CreateSimulationRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.ModelType == "" {
		r.ModelType = ModelTypeIntegrated
	}
	if r.TimeStep == "" {
		r.TimeStep = TimeStepDaily
	}
}

// Validate validates the request fields.
func (r *CreateSimulationRequest) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if !r.ModelType.Valid() {
		return invalidModelType()
	}
	if !r.TimeStep.Valid() {
		return apperrors.ValidationField("time_step", "time_step must be one of: DAILY, MONTHLY, ANNUAL")
	}
	if err := (Period{Start: r.StartDate, End: r.EndDate}).Validate(); err != nil {
		return apperrors.ValidationField("end_date", err.Error())
	}
	return r.Configuration.Validate()
}

// UpdateSimulationRequest changes the mutable fields of a non-running simulation.
type UpdateSimulationRequest struct {
	Name          *string           `json:"name,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Configuration *SimulationConfig `json:"configuration,omitempty"`
}

// Validate validates the request fields.
func (r *UpdateSimulationRequest) Validate() error {
	if r.Name == nil && r.Description == nil && r.Configuration == nil {
		return apperrors.Validation("at least one field must be updated")
	}
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
		if err := validateName(trimmed); err != nil {
			return err
		}
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if r.Configuration != nil {
		return r.Configuration.Validate()
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperrors.ValidationField("name", "name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.ValidationField("name", "name cannot exceed 200 characters")
	}
	return nil
}

func validateDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > maxDescriptionLength {
		return apperrors.ValidationField("description", "description cannot exceed 1000 characters")
	}
	return nil
}
