package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/hydromodel"
	"github.com/target/hydrosim/internal/service"
)

// CatalogService describes the model catalog and saved configurations.
type CatalogService interface {
	Parameters(modelType string) (hydromodel.ModelSchema, error)
	Capabilities() service.Capabilities
	ListConfigurations(ctx context.Context, ownerID string) ([]*model.ModelConfiguration, error)
	CreateConfiguration(
		ctx context.Context,
		ownerID string,
		req *model.CreateConfigurationRequest,
	) (*model.ModelConfiguration, error)
	DeleteConfiguration(ctx context.Context, ownerID, id string) error
}

var _ CatalogService = (*service.CatalogService)(nil)

// ModelHandlers serves /api/models.
type ModelHandlers struct {
	Svc    CatalogService
	Logger *slog.Logger
}

// Parameters handles GET /api/models/parameters/{model_type}.
func (h *ModelHandlers) Parameters(w http.ResponseWriter, r *http.Request) {
	schema, err := h.Svc.Parameters(r.PathValue("model_type"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, schema)
}

// Capabilities handles GET /api/models/capabilities.
func (h *ModelHandlers) Capabilities(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Capabilities())
}

// ListConfigurations handles GET /api/models/configurations.
func (h *ModelHandlers) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.ListConfigurations(r.Context(), owner)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// CreateConfiguration handles POST /api/models/configurations.
func (h *ModelHandlers) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	var req model.CreateConfigurationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	cfg, err := h.Svc.CreateConfiguration(r.Context(), owner, &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, cfg)
}

// DeleteConfiguration handles DELETE /api/models/configurations/{id}.
func (h *ModelHandlers) DeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteConfiguration(r.Context(), owner, r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
