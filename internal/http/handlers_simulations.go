// Package httpx provides HTTP handlers and utilities for the hydrosim simulation API.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/results"
	"github.com/target/hydrosim/internal/service"
)

// SimulationService is the owner-scoped API the handlers call.
// *service.SimulationService implements it.
type SimulationService interface {
	Create(ctx context.Context, ownerID string, req *model.CreateSimulationRequest) (*model.Simulation, error)
	List(ctx context.Context, ownerID string, opts model.SimulationListOptions) (*model.SimulationPage, error)
	Get(ctx context.Context, ownerID, id string) (*model.Simulation, error)
	Update(ctx context.Context, ownerID, id string, req *model.UpdateSimulationRequest) (*model.Simulation, error)
	Delete(ctx context.Context, ownerID, id string) error
	Run(ctx context.Context, ownerID, id string) (*model.Simulation, error)
	Stop(ctx context.Context, ownerID, id string) (*model.Simulation, error)
	Stats(ctx context.Context, ownerID string) (*model.SimulationStats, error)
	Results(ctx context.Context, ownerID, id string, q service.ResultQuery) (any, error)
	Export(ctx context.Context, ownerID, id string, format results.ExportFormat) ([]byte, error)
	Summary(ctx context.Context, ownerID, id string) (*model.ResultSummary, error)
}

var _ SimulationService = (*service.SimulationService)(nil)

// SimulationHandlers provides HTTP handlers for simulation jobs.
type SimulationHandlers struct {
	Svc    SimulationService
	Logger *slog.Logger
}

// ownerOrFail returns the request's owner id. RequireOwner normally guarantees one.
func ownerOrFail(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "owner_required",
			Err:     errors.New("owner id is required"),
		})
	}
	return owner, ok
}

// Create handles POST /api/simulations.
func (h *SimulationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	var req model.CreateSimulationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sim, err := h.Svc.Create(r.Context(), owner, &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sim)
}

// List handles GET /api/simulations.
func (h *SimulationHandlers) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}

	page, err := h.Svc.List(r.Context(), owner, opts)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /api/simulations/{id}.
func (h *SimulationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(ctx context.Context, owner, id string) (any, error) {
		return h.Svc.Get(ctx, owner, id)
	})
}

// Update handles PUT /api/simulations/{id}.
func (h *SimulationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	var req model.UpdateSimulationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sim, err := h.Svc.Update(r.Context(), owner, r.PathValue("id"), &req)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, sim)
}

// Delete handles DELETE /api/simulations/{id}.
func (h *SimulationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Run handles POST /api/simulations/{id}/run.
func (h *SimulationHandlers) Run(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(ctx context.Context, owner, id string) (any, error) {
		return h.Svc.Run(ctx, owner, id)
	})
}

// Stop handles POST /api/simulations/{id}/stop.
func (h *SimulationHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(ctx context.Context, owner, id string) (any, error) {
		return h.Svc.Stop(ctx, owner, id)
	})
}

// Stats handles GET /api/simulations/stats.
func (h *SimulationHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.Stats(r.Context(), owner)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// respond runs fn for the owner and {id} path value and writes its result as JSON.
func (h *SimulationHandlers) respond(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	fn func(ctx context.Context, owner, id string) (any, error),
) {
	owner, ok := ownerOrFail(w, r)
	if !ok {
		return
	}
	v, err := fn(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, status, v)
}
