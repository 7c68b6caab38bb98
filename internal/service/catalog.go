package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	apperrors "github.com/target/hydrosim/internal/errors"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/results"
)

// Capabilities describes what the platform can run and export.
type Capabilities struct {
	Models        []hydromodel.ModelInfo `json:"models"`
	TimeSteps     []model.TimeStep       `json:"time_steps"`
	ResultTypes   []model.ResultType     `json:"result_types"`
	ExportFormats []results.ExportFormat `json:"export_formats"`
	Indicators    []string               `json:"indicators"`
}

// CatalogServiceOptions groups dependencies for CatalogService.
type CatalogServiceOptions struct {
	Configurations core.ConfigurationRepository // Required: saved configurations
	Logger         *slog.Logger                 // Optional: structured logger
}

// CatalogService exposes the model catalog and the owner's saved configurations.
type CatalogService struct {
	configs core.ConfigurationRepository
	logger  *slog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(opts CatalogServiceOptions) (*CatalogService, error) {
	if opts.Configurations == nil {
		return nil, errors.New("ConfigurationRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		configs: opts.Configurations,
		logger:  logger.With("component", "catalog_service"),
	}, nil
}

// Parameters returns the parameter schema of a model type, matched
// case-insensitively.
func (s *CatalogService) Parameters(modelType string) (hydromodel.ModelSchema, error) {
	var mt model.ModelType
	if err := mt.UnmarshalText([]byte(modelType)); err != nil {
		return hydromodel.ModelSchema{}, apperrors.NotFoundf("model type '%s' not found", modelType)
	}
	schema, ok := hydromodel.Schema(mt)
	if !ok {
		return hydromodel.ModelSchema{}, apperrors.NotFoundf("model type '%s' not found", modelType)
	}
	return schema, nil
}

// Capabilities lists the supported models, resolutions and outputs.
func (s *CatalogService) Capabilities() Capabilities {
	return Capabilities{
		Models:        hydromodel.Models(),
		TimeSteps:     []model.TimeStep{model.TimeStepDaily, model.TimeStepMonthly, model.TimeStepAnnual},
		ResultTypes:   model.ResultTypes(),
		ExportFormats: []results.ExportFormat{results.ExportCSV, results.ExportJSON},
		Indicators:    results.IndicatorNames(),
	}
}

// ListConfigurations returns the owner's configurations and every public one.
func (s *CatalogService) ListConfigurations(ctx context.Context, ownerID string) ([]*model.ModelConfiguration, error) {
	out, err := s.configs.ListConfigurations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	if out == nil {
		out = []*model.ModelConfiguration{}
	}
	return out, nil
}

// CreateConfiguration validates req and saves it for the owner.
func (s *CatalogService) CreateConfiguration(
	ctx context.Context,
	ownerID string,
	req *model.CreateConfigurationRequest,
) (*model.ModelConfiguration, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg := &model.ModelConfiguration{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		ModelType:   req.ModelType,
		Parameters:  req.Parameters,
		IsTemplate:  req.IsTemplate,
		IsPublic:    req.IsPublic,
	}
	if err := s.configs.CreateConfiguration(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create configuration: %w", apperrors.MapDBError(err))
	}
	s.logger.InfoContext(ctx, "configuration saved",
		"configuration_id", cfg.ID, "model_type", cfg.ModelType, "public", cfg.IsPublic)
	return cfg, nil
}

// DeleteConfiguration removes one of the owner's configurations. Public
// configurations of other owners are reported as not found.
func (s *CatalogService) DeleteConfiguration(ctx context.Context, ownerID, id string) error {
	err := s.configs.DeleteConfiguration(ctx, ownerID, id)
	if errors.Is(err, model.ErrConfigurationNotFound) {
		return apperrors.NotFoundf("configuration %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	s.logger.InfoContext(ctx, "configuration deleted", "configuration_id", id)
	return nil
}
