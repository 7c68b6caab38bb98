package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/service"
)

// ScenarioService manages the scenarios of an owner's simulations.
type ScenarioService interface {
	List(ctx context.Context, ownerID, simulationID string) ([]*model.Scenario, error)
	Create(ctx context.Context, ownerID, simulationID string, req *model.CreateScenarioRequest) (*model.Scenario, error)
	Delete(ctx context.Context, ownerID, simulationID, scenarioID string) error
}

var _ ScenarioService = (*service.ScenarioService)(nil)

// ScenarioHandlers serves /api/simulations/{id}/scenarios.
type ScenarioHandlers struct {
	Svc    ScenarioService
	Logger *slog.Logger
}

// List handles GET /api/simulations/{id}/scenarios.
func (h *ScenarioHandlers) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.List(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/simulations/{id}/scenarios.
func (h *ScenarioHandlers) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	var req model.CreateScenarioRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	sc, err := h.Svc.Create(r.Context(), owner, r.PathValue("id"), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sc)
}

// Delete handles DELETE /api/simulations/{id}/scenarios/{scenarioID}.
func (h *ScenarioHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), owner, r.PathValue("id"), r.PathValue("scenarioID")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
